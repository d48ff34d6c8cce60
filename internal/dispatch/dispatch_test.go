package dispatch

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-nfsd/exportd/internal/fsal/local"
	mounthandlers "github.com/go-nfsd/exportd/internal/mount/handlers"
	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/nfs3/handle"
	nfs3handlers "github.com/go-nfsd/exportd/internal/nfs3/handlers"
	"github.com/go-nfsd/exportd/internal/rpc"
	"github.com/go-nfsd/exportd/internal/xdr"
)

func encodeCall(t *testing.T, xid, program, version, procedure uint32, args []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(buf, xid))
	require.NoError(t, xdr.WriteUint32(buf, rpc.MsgCall))
	require.NoError(t, xdr.WriteUint32(buf, rpc.RPCVersion2))
	require.NoError(t, xdr.WriteUint32(buf, program))
	require.NoError(t, xdr.WriteUint32(buf, version))
	require.NoError(t, xdr.WriteUint32(buf, procedure))
	// cred: AUTH_NONE
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthFlavorNone))
	require.NoError(t, xdr.WriteOpaque(buf, nil))
	// verf: AUTH_NONE
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthFlavorNone))
	require.NoError(t, xdr.WriteOpaque(buf, nil))
	buf.Write(args)
	return buf.Bytes()
}

func decodeAcceptedHeader(t *testing.T, reply []byte) (xid, msgType, replyStat, acceptStat uint32, body []byte) {
	t.Helper()
	d := xdr.NewDecoder(reply)
	var err error
	xid, err = d.Uint32()
	require.NoError(t, err)
	msgType, err = d.Uint32()
	require.NoError(t, err)
	replyStat, err = d.Uint32()
	require.NoError(t, err)
	require.Equal(t, rpc.MsgAccepted, replyStat)
	// verf flavor + opaque
	_, err = d.Uint32()
	require.NoError(t, err)
	_, err = d.Opaque()
	require.NoError(t, err)
	acceptStat, err = d.Uint32()
	require.NoError(t, err)
	body = reply[len(reply)-d.Remaining():]
	return
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	fs, err := local.New(t.TempDir())
	require.NoError(t, err)
	handles := handle.New()
	nfs := nfs3handlers.New(fs, handles)
	mnt := mounthandlers.New("/export", handles.HandleFor(nfs3.TypeDir, 1, ""), nil)
	return New(nfs, mnt)
}

func TestDispatchNFSNull(t *testing.T) {
	d := newTestDispatcher(t)
	record := encodeCall(t, 42, rpc.ProgramNFS, 3, nfs3.ProcNull, nil)

	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", record)
	require.NoError(t, err)
	require.NotNil(t, reply)

	xid, msgType, _, acceptStat, body := decodeAcceptedHeader(t, reply)
	assert.Equal(t, uint32(42), xid)
	assert.Equal(t, rpc.MsgReply, msgType)
	assert.Equal(t, rpc.Success, acceptStat)
	assert.Empty(t, body)
}

func TestDispatchMountNull(t *testing.T) {
	d := newTestDispatcher(t)
	record := encodeCall(t, 7, rpc.ProgramMount, 3, 0, nil)

	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", record)
	require.NoError(t, err)

	_, _, _, acceptStat, _ := decodeAcceptedHeader(t, reply)
	assert.Equal(t, rpc.Success, acceptStat)
}

func TestDispatchUnknownProgram(t *testing.T) {
	d := newTestDispatcher(t)
	record := encodeCall(t, 1, 999999, 1, 0, nil)

	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", record)
	require.NoError(t, err)

	_, _, _, acceptStat, _ := decodeAcceptedHeader(t, reply)
	assert.Equal(t, rpc.ProgUnavail, acceptStat)
}

func TestDispatchProgramVersionMismatch(t *testing.T) {
	d := newTestDispatcher(t)
	record := encodeCall(t, 1, rpc.ProgramNFS, 4, nfs3.ProcNull, nil)

	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", record)
	require.NoError(t, err)

	_, _, _, acceptStat, body := decodeAcceptedHeader(t, reply)
	assert.Equal(t, rpc.ProgMismatch, acceptStat)

	bd := xdr.NewDecoder(body)
	low, err := bd.Uint32()
	require.NoError(t, err)
	high, err := bd.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), low)
	assert.Equal(t, uint32(3), high)
}

func TestDispatchProcedureUnavailable(t *testing.T) {
	d := newTestDispatcher(t)
	record := encodeCall(t, 1, rpc.ProgramNFS, 3, nfs3.ProcMax+1, nil)

	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", record)
	require.NoError(t, err)

	_, _, _, acceptStat, _ := decodeAcceptedHeader(t, reply)
	assert.Equal(t, rpc.ProcUnavail, acceptStat)
}

func TestDispatchGarbageArgs(t *testing.T) {
	d := newTestDispatcher(t)
	// GETATTR expects an opaque file handle; an empty argument body
	// can't even decode the length prefix.
	record := encodeCall(t, 1, rpc.ProgramNFS, 3, nfs3.ProcGetAttr, nil)

	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", record)
	require.NoError(t, err)

	_, _, _, acceptStat, _ := decodeAcceptedHeader(t, reply)
	assert.Equal(t, rpc.GarbageArgs, acceptStat)
}

func TestDispatchRejectsUnsupportedAuthFlavor(t *testing.T) {
	d := newTestDispatcher(t)

	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(buf, 9))
	require.NoError(t, xdr.WriteUint32(buf, rpc.MsgCall))
	require.NoError(t, xdr.WriteUint32(buf, rpc.RPCVersion2))
	require.NoError(t, xdr.WriteUint32(buf, rpc.ProgramNFS))
	require.NoError(t, xdr.WriteUint32(buf, 3))
	require.NoError(t, xdr.WriteUint32(buf, nfs3.ProcNull))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthFlavorGSS))
	require.NoError(t, xdr.WriteOpaque(buf, nil))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthFlavorNone))
	require.NoError(t, xdr.WriteOpaque(buf, nil))

	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", buf.Bytes())
	require.NoError(t, err)

	d2 := xdr.NewDecoder(reply)
	xid, err := d2.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(9), xid)
	msgType, err := d2.Uint32()
	require.NoError(t, err)
	assert.Equal(t, rpc.MsgReply, msgType)
	replyStat, err := d2.Uint32()
	require.NoError(t, err)
	assert.Equal(t, rpc.MsgDenied, replyStat)
	rejectStat, err := d2.Uint32()
	require.NoError(t, err)
	assert.Equal(t, rpc.AuthError, rejectStat)
	authStat, err := d2.Uint32()
	require.NoError(t, err)
	assert.Equal(t, rpc.AuthRejectedCred, authStat)
}

func TestDispatchUnreadableHeaderDropsConnection(t *testing.T) {
	d := newTestDispatcher(t)
	reply, err := d.Dispatch(context.Background(), "127.0.0.1:1234", []byte{0x00, 0x01})
	require.NoError(t, err)
	assert.Nil(t, reply)
}

package server

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-nfsd/exportd/internal/dispatch"
	"github.com/go-nfsd/exportd/internal/fsal/local"
	mounthandlers "github.com/go-nfsd/exportd/internal/mount/handlers"
	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/nfs3/handle"
	nfs3handlers "github.com/go-nfsd/exportd/internal/nfs3/handlers"
	"github.com/go-nfsd/exportd/internal/rpc"
	"github.com/go-nfsd/exportd/internal/xdr"
)

func newTestDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	fs, err := local.New(t.TempDir())
	require.NoError(t, err)
	handles := handle.New()
	nfs := nfs3handlers.New(fs, handles)
	mnt := mounthandlers.New("/export", handles.HandleFor(nfs3.TypeDir, 1, ""), nil)
	return dispatch.New(nfs, mnt)
}

func encodeCall(t *testing.T, xid, program, version, procedure uint32) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(buf, xid))
	require.NoError(t, xdr.WriteUint32(buf, rpc.MsgCall))
	require.NoError(t, xdr.WriteUint32(buf, rpc.RPCVersion2))
	require.NoError(t, xdr.WriteUint32(buf, program))
	require.NoError(t, xdr.WriteUint32(buf, version))
	require.NoError(t, xdr.WriteUint32(buf, procedure))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthFlavorNone))
	require.NoError(t, xdr.WriteOpaque(buf, nil))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthFlavorNone))
	require.NoError(t, xdr.WriteOpaque(buf, nil))
	return buf.Bytes()
}

func startTestServer(t *testing.T) (*Server, context.CancelFunc) {
	t.Helper()
	disp := newTestDispatcher(t)
	srv := New(Config{Addr: "127.0.0.1:0", IdleTimeout: 2 * time.Second, ShutdownTimeout: time.Second}, disp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	return srv, cancel
}

func TestServerRoundTripsNFSNull(t *testing.T) {
	srv, _ := startTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, rpc.WriteRecord(conn, encodeCall(t, 55, rpc.ProgramNFS, 3, nfs3.ProcNull)))

	reply, release, err := rpc.ReadRecord(conn, conn.RemoteAddr().String())
	require.NoError(t, err)
	defer release()

	d := xdr.NewDecoder(reply)
	xid, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(55), xid)
	msgType, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, rpc.MsgReply, msgType)
}

func TestServerHandlesMultipleRequestsOnOneConnection(t *testing.T) {
	srv, _ := startTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	for i := uint32(0); i < 3; i++ {
		require.NoError(t, rpc.WriteRecord(conn, encodeCall(t, i+1, rpc.ProgramMount, 3, 0)))
		reply, release, err := rpc.ReadRecord(conn, conn.RemoteAddr().String())
		require.NoError(t, err)
		d := xdr.NewDecoder(reply)
		xid, err := d.Uint32()
		require.NoError(t, err)
		assert.Equal(t, i+1, xid)
		release()
	}
}

func TestServerClosesConnectionOnUnreadableHeader(t *testing.T) {
	srv, _ := startTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	// A record shorter than a fragment header's own length prefix leaves
	// the server nothing to reply against, so it drops the connection.
	require.NoError(t, rpc.WriteRecord(conn, []byte{0x00, 0x01}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	assert.True(t, n == 0 || err != nil)
}

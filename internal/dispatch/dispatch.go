// Package dispatch wires a decoded RPC CALL to the NFSv3 or MOUNTv3
// procedure table and builds the matching REPLY, the one place that
// understands both protocols' program numbers.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-nfsd/exportd/internal/logger"
	"github.com/go-nfsd/exportd/internal/mount"
	mounthandlers "github.com/go-nfsd/exportd/internal/mount/handlers"
	"github.com/go-nfsd/exportd/internal/nfs3"
	nfs3handlers "github.com/go-nfsd/exportd/internal/nfs3/handlers"
	"github.com/go-nfsd/exportd/internal/rpc"
)

// nfsVersion/mountVersion are the only versions this server advertises of
// each program; a mismatch gets PROG_MISMATCH with this exact range.
const (
	nfsVersion   uint32 = 3
	mountVersion uint32 = 3
)

// Dispatcher routes a decoded RPC CALL to the NFSv3 or MOUNTv3 handler
// table and serializes whatever reply results. It holds no per-connection
// state, so one instance is shared by every connection the server accepts.
type Dispatcher struct {
	nfs      *nfs3handlers.Handlers
	nfsProcs map[uint32]nfs3handlers.Proc
	mnt      *mounthandlers.Handlers
	mntProcs map[uint32]mounthandlers.Proc
}

// New builds a Dispatcher over the given NFSv3 and MOUNTv3 handler sets.
func New(nfs *nfs3handlers.Handlers, mnt *mounthandlers.Handlers) *Dispatcher {
	return &Dispatcher{
		nfs:      nfs,
		nfsProcs: nfs.Table(),
		mnt:      mnt,
		mntProcs: mnt.Table(),
	}
}

// Dispatch decodes one complete RPC record, invokes the matching
// procedure, and returns the bytes of the REPLY record to send back. A
// nil, nil result means the record carried a fault with no known xid
// (the CALL header itself didn't parse) — the caller should drop the
// connection rather than guess at a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, clientAddr string, record []byte) ([]byte, error) {
	call, argBytes, err := rpc.DecodeCall(record)
	if err != nil {
		var decErr *rpc.DecodeError
		if errors.As(err, &decErr) && decErr.HasXID {
			if decErr.RPCVers {
				return rpc.RPCMismatchReply(decErr.XID, rpc.RPCVersion2, rpc.RPCVersion2), nil
			}
			return rpc.AcceptedReply(decErr.XID, rpc.GarbageArgs, nil), nil
		}
		logger.WarnCtx(ctx, "dispatch: unreadable CALL header", "client", clientAddr, "error", err)
		return nil, nil
	}

	cred, ok := rpc.ResolveCredentials(call.Cred)
	if !ok {
		return rpc.DeniedReply(call.XID, rpc.AuthRejectedCred), nil
	}

	switch call.Program {
	case rpc.ProgramNFS:
		return d.dispatchNFS(ctx, clientAddr, cred, call, argBytes), nil
	case rpc.ProgramMount:
		return d.dispatchMount(ctx, clientAddr, call, argBytes), nil
	default:
		return rpc.AcceptedReply(call.XID, rpc.ProgUnavail, nil), nil
	}
}

func (d *Dispatcher) dispatchNFS(ctx context.Context, clientAddr string, cred rpc.Credentials, call *rpc.CallMessage, args []byte) []byte {
	if call.Version != nfsVersion {
		return rpc.ProgMismatchReply(call.XID, nfsVersion, nfsVersion)
	}
	proc, ok := d.nfsProcs[call.Procedure]
	if !ok || call.Procedure > nfs3.ProcMax {
		return rpc.AcceptedReply(call.XID, rpc.ProcUnavail, nil)
	}

	hctx := &nfs3handlers.Context{Context: ctx, ClientAddr: clientAddr, UID: cred.UID, GID: cred.GID}
	body, status, err := invoke(ctx, "nfs3", call.Procedure, clientAddr, func() ([]byte, error) {
		return proc(hctx, args)
	})
	if status != rpc.Success {
		return rpc.AcceptedReply(call.XID, status, nil)
	}
	if err != nil {
		return rpc.AcceptedReply(call.XID, rpc.GarbageArgs, nil)
	}
	return rpc.AcceptedReply(call.XID, rpc.Success, body)
}

func (d *Dispatcher) dispatchMount(ctx context.Context, clientAddr string, call *rpc.CallMessage, args []byte) []byte {
	if call.Version != mountVersion {
		return rpc.ProgMismatchReply(call.XID, mountVersion, mountVersion)
	}
	proc, ok := d.mntProcs[call.Procedure]
	if !ok || call.Procedure > mount.ProcMax {
		return rpc.AcceptedReply(call.XID, rpc.ProcUnavail, nil)
	}

	hctx := &mounthandlers.Context{Context: ctx, ClientAddr: clientAddr}
	body, status, err := invoke(ctx, "mount", call.Procedure, clientAddr, func() ([]byte, error) {
		return proc(hctx, args)
	})
	if status != rpc.Success {
		return rpc.AcceptedReply(call.XID, status, nil)
	}
	if err != nil {
		return rpc.AcceptedReply(call.XID, rpc.GarbageArgs, nil)
	}
	return rpc.AcceptedReply(call.XID, rpc.Success, body)
}

// invoke runs a procedure with panic recovery, mapping a recovered panic
// to accept_stat SYSTEM_ERR rather than letting it take the connection's
// goroutine down — a single malformed request or FSAL bug must not bring
// down unrelated clients.
func invoke(ctx context.Context, proto string, proc uint32, clientAddr string, fn func() ([]byte, error)) (body []byte, status uint32, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "dispatch: recovered panic", "proto", proto, "proc", proc, "client", clientAddr, "panic", fmt.Sprint(r))
			body, status, err = nil, rpc.SystemErr, nil
		}
	}()
	b, e := fn()
	if e != nil {
		return nil, rpc.Success, e
	}
	return b, rpc.Success, nil
}

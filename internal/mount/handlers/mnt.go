package handlers

import (
	"bytes"

	"github.com/go-nfsd/exportd/internal/mount"
	"github.com/go-nfsd/exportd/internal/rpc"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// Mnt implements MOUNTPROC3_MNT (RFC 1813 Appendix I §1.2.1): the
// request for a root file handle for an export. Only this server's
// single configured export is ever accepted; anything else is
// MNT3ERR_NOENT, decided by a trailing-slash-normalized string
// comparison against the configured export path.
func (h *Handlers) Mnt(ctx *Context, args []byte) ([]byte, error) {
	dirPath, err := decodeDirPath(args)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if normalize(dirPath) != h.ExportPath {
		_ = xdr.WriteUint32(&buf, mount.ErrNoEnt)
		return buf.Bytes(), nil
	}

	h.mu.Lock()
	h.entries[clientHost(ctx.ClientAddr)] = entry{host: clientHost(ctx.ClientAddr), path: h.ExportPath}
	h.mu.Unlock()

	_ = xdr.WriteUint32(&buf, mount.OK)
	_ = xdr.WriteOpaque(&buf, h.RootHandle)
	// auth_flavors<>: this exporter accepts AUTH_NONE and parses-and-
	// ignores AUTH_SYS, so both are advertised.
	_ = xdr.WriteUint32(&buf, 2)
	_ = xdr.WriteUint32(&buf, rpc.AuthFlavorNone)
	_ = xdr.WriteUint32(&buf, rpc.AuthFlavorSys)
	return buf.Bytes(), nil
}

// Umnt implements MOUNTPROC3_UMNT (RFC 1813 Appendix I §1.2.3): retire
// the caller's mount entry. It has no result body and always succeeds —
// UMNT of a path never mounted is simply a no-op, per the protocol.
func (h *Handlers) Umnt(ctx *Context, args []byte) ([]byte, error) {
	if _, err := decodeDirPath(args); err != nil {
		return nil, err
	}
	h.mu.Lock()
	delete(h.entries, clientHost(ctx.ClientAddr))
	h.mu.Unlock()
	return nil, nil
}

// UmntAll implements MOUNTPROC3_UMNTALL (RFC 1813 Appendix I §1.2.4):
// retire every mount entry recorded for the calling host.
func (h *Handlers) UmntAll(ctx *Context, args []byte) ([]byte, error) {
	h.mu.Lock()
	delete(h.entries, clientHost(ctx.ClientAddr))
	h.mu.Unlock()
	return nil, nil
}

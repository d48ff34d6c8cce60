package handlers

import (
	"bytes"

	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// GetAttr implements NFSPROC3_GETATTR (RFC 1813 §3.3.1).
func (h *Handlers) GetAttr(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	attr, err := h.FSAL.GetAttr(ctx, relPath)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(err))
	if err == nil {
		_ = nfs3.EncodeFileAttr(&buf, attr)
	}
	return buf.Bytes(), nil
}

// SetAttr implements NFSPROC3_SETATTR (RFC 1813 §3.3.2).
func (h *Handlers) SetAttr(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	sattr, err := nfs3.DecodeSetAttr(d)
	if err != nil {
		return nil, err
	}
	guard, err := nfs3.DecodeSattrGuard(d)
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	before, after, serr := h.FSAL.SetAttr(ctx, relPath, sattr, guard)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(serr))
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: before, After: after})
	return buf.Bytes(), nil
}

package handlers

import (
	"bytes"

	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// Lookup implements NFSPROC3_LOOKUP (RFC 1813 §3.3.3).
func (h *Handlers) Lookup(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	dirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	name, err := d.String()
	if err != nil {
		return nil, err
	}

	dirPath, rerr := h.resolve(dirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		var buf bytes.Buffer
		_ = xdr.WriteUint32(&buf, status)
		_ = nfs3.EncodeOptionalFileAttr(&buf, dirAttr)
		return buf.Bytes(), nil
	}

	obj, attr, lerr := h.FSAL.Lookup(ctx, dirPath, name)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(lerr))
	if lerr == nil {
		childHandle := h.handleFor(ftypeOf(attr), obj)
		_ = writeHandle(&buf, childHandle)
		_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	}
	_ = nfs3.EncodeOptionalFileAttr(&buf, dirAttr)
	return buf.Bytes(), nil
}

// Access implements NFSPROC3_ACCESS (RFC 1813 §3.3.4).
func (h *Handlers) Access(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	requested, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	granted, attr, aerr := h.FSAL.Access(ctx, relPath, ctx.UID, ctx.GID, requested)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(aerr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	if aerr == nil {
		_ = xdr.WriteUint32(&buf, granted)
	}
	return buf.Bytes(), nil
}

// Readlink implements NFSPROC3_READLINK (RFC 1813 §3.3.5).
func (h *Handlers) Readlink(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	target, attr, lerr := h.FSAL.Readlink(ctx, relPath)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(lerr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	if lerr == nil {
		_ = xdr.WriteString(&buf, target)
	}
	return buf.Bytes(), nil
}

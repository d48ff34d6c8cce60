package handlers

import (
	"bytes"
	"strings"

	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// Readdir implements NFSPROC3_READDIR (RFC 1813 §3.3.16). The entry list
// is encoded as a linked list of present markers terminated by an absent
// marker, per RFC 4506's optional-data convention applied repeatedly.
func (h *Handlers) Readdir(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	cookie, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	rawVerf, err := d.FixedOpaque(8)
	if err != nil {
		return nil, err
	}
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	var cookieVerf [8]byte
	copy(cookieVerf[:], rawVerf)

	dirPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)

	entries, newVerf, eof, derr := h.FSAL.Readdir(ctx, dirPath, cookie, cookieVerf, count)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(derr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, dirAttr)
	if derr != nil {
		return buf.Bytes(), nil
	}

	_ = xdr.WriteFixedOpaque(&buf, newVerf[:])
	for _, e := range entries {
		_ = xdr.WriteBool(&buf, true)
		_ = xdr.WriteUint64(&buf, e.FileID)
		_ = xdr.WriteString(&buf, e.Name)
		_ = xdr.WriteUint64(&buf, e.Cookie)
	}
	_ = xdr.WriteBool(&buf, false) // terminate entry list
	_ = xdr.WriteBool(&buf, eof)
	return buf.Bytes(), nil
}

// ReaddirPlus implements NFSPROC3_READDIRPLUS (RFC 1813 §3.3.17): the
// same pagination protocol as READDIR, with attributes and a handle
// inlined per entry so a client can skip a LOOKUP round trip per name.
func (h *Handlers) ReaddirPlus(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	cookie, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	rawVerf, err := d.FixedOpaque(8)
	if err != nil {
		return nil, err
	}
	_, err = d.Uint32() // dircount, not distinguished from maxcount here
	if err != nil {
		return nil, err
	}
	maxCount, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	var cookieVerf [8]byte
	copy(cookieVerf[:], rawVerf)

	dirPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)

	entries, newVerf, eof, derr := h.FSAL.Readdir(ctx, dirPath, cookie, cookieVerf, maxCount)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(derr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, dirAttr)
	if derr != nil {
		return buf.Bytes(), nil
	}

	_ = xdr.WriteFixedOpaque(&buf, newVerf[:])
	for _, e := range entries {
		_ = xdr.WriteBool(&buf, true)
		_ = xdr.WriteUint64(&buf, e.FileID)
		_ = xdr.WriteString(&buf, e.Name)
		_ = xdr.WriteUint64(&buf, e.Cookie)

		childPath := e.Name
		switch e.Name {
		case ".":
			childPath = dirPath
		case "..":
			childPath = "" // the root's ".." is the root itself
			if i := strings.LastIndexByte(dirPath, '/'); i >= 0 {
				childPath = dirPath[:i]
			}
		default:
			childPath = join(dirPath, e.Name)
		}
		childAttr, aerr := h.FSAL.GetAttr(ctx, childPath)
		_ = nfs3.EncodeOptionalFileAttr(&buf, childAttr)

		var childHandle []byte
		if aerr == nil {
			childHandle = h.handleFor(childAttr.Type, fsal.Object{Path: childPath, FileID: e.FileID})
		}
		_ = nfs3.EncodeOptionalHandle(&buf, childHandle)
	}
	_ = xdr.WriteBool(&buf, false)
	_ = xdr.WriteBool(&buf, eof)
	return buf.Bytes(), nil
}

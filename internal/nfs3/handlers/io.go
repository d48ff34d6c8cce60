package handlers

import (
	"bytes"

	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// maxReadCount bounds a single READ reply's payload; mirrored in FSINFO's
// rtmax/rtpref so well-behaved clients never exceed it.
const maxReadCount = 1 << 20

// Read implements NFSPROC3_READ (RFC 1813 §3.3.6).
func (h *Handlers) Read(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	offset, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if count > maxReadCount {
		count = maxReadCount
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	data, eof, attr, werr := h.FSAL.Read(ctx, relPath, offset, count)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(werr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	if werr == nil {
		_ = xdr.WriteUint32(&buf, uint32(len(data)))
		_ = xdr.WriteBool(&buf, eof)
		_ = xdr.WriteOpaque(&buf, data)
	}
	return buf.Bytes(), nil
}

// Write implements NFSPROC3_WRITE (RFC 1813 §3.3.7). The pre-op WCC
// snapshot is captured by the FSAL before the pwrite(2) it performs
// internally, so a concurrent mutation between snapshot and write still
// produces a coherent wcc_data for the caller.
func (h *Handlers) Write(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	offset, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	stable, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if stable > nfs3.MaxStable {
		return nil, errInvalidStable
	}
	data, err := d.Opaque()
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) != count {
		return nil, errWriteLengthMismatch
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	n, committed, before, after, werr := h.FSAL.Write(ctx, relPath, offset, data, stable)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(werr))
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: before, After: after})
	if werr == nil {
		_ = xdr.WriteUint32(&buf, n)
		_ = xdr.WriteUint32(&buf, committed)
		verf := h.FSAL.WriteVerifier()
		_ = xdr.WriteFixedOpaque(&buf, verf[:])
	}
	return buf.Bytes(), nil
}

// Commit implements NFSPROC3_COMMIT (RFC 1813 §3.3.21).
func (h *Handlers) Commit(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	offset, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	before, after, cerr := h.FSAL.Commit(ctx, relPath, offset, count)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(cerr))
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: before, After: after})
	if cerr == nil {
		verf := h.FSAL.WriteVerifier()
		_ = xdr.WriteFixedOpaque(&buf, verf[:])
	}
	return buf.Bytes(), nil
}

var (
	errInvalidStable       = wireError("nfs3: invalid stable_how discriminant")
	errWriteLengthMismatch = wireError("nfs3: write data length does not match declared count")
)

type wireError string

func (e wireError) Error() string { return string(e) }

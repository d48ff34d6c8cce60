package handlers

import (
	"bytes"

	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// Remove implements NFSPROC3_REMOVE (RFC 1813 §3.3.12).
func (h *Handlers) Remove(ctx *Context, args []byte) ([]byte, error) {
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

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)
		var buf bytes.Buffer
		_ = xdr.WriteUint32(&buf, status)
		_ = nfs3.EncodeWccData(&buf, wccFromAttr(dirAttr))
		return buf.Bytes(), nil
	}

	fileID, dirBefore, dirAfter, merr := h.FSAL.Remove(ctx, dirPath, name)
	if merr == nil {
		h.Handles.Forget(fileID)
	}

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(merr))
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: dirBefore, After: dirAfter})
	return buf.Bytes(), nil
}

// Rmdir implements NFSPROC3_RMDIR (RFC 1813 §3.3.13).
func (h *Handlers) Rmdir(ctx *Context, args []byte) ([]byte, error) {
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

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)
		var buf bytes.Buffer
		_ = xdr.WriteUint32(&buf, status)
		_ = nfs3.EncodeWccData(&buf, wccFromAttr(dirAttr))
		return buf.Bytes(), nil
	}

	fileID, dirBefore, dirAfter, merr := h.FSAL.Rmdir(ctx, dirPath, name)
	if merr == nil {
		h.Handles.Forget(fileID)
	}

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(merr))
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: dirBefore, After: dirAfter})
	return buf.Bytes(), nil
}

// Rename implements NFSPROC3_RENAME (RFC 1813 §3.3.14). When fromDir and
// toDir are the same directory, the reply still writes two independent
// wcc_data records — the wire shape doesn't special-case it, only the
// snapshots happen to be taken from the same directory.
func (h *Handlers) Rename(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fromDirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	fromName, err := d.String()
	if err != nil {
		return nil, err
	}
	toDirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	toName, err := d.String()
	if err != nil {
		return nil, err
	}

	fromDirPath, rerr := h.resolve(fromDirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	toDirPath, rerr := h.resolve(toDirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	fromStatus, toStatus := nfs3.NameStatus(fromName), nfs3.NameStatus(toName)
	if fromStatus != nfs3.OK || toStatus != nfs3.OK {
		status := fromStatus
		if status == nfs3.OK {
			status = toStatus
		}
		fromAttr, _ := h.FSAL.GetAttr(ctx, fromDirPath)
		toAttr, _ := h.FSAL.GetAttr(ctx, toDirPath)
		var buf bytes.Buffer
		_ = xdr.WriteUint32(&buf, status)
		_ = nfs3.EncodeWccData(&buf, wccFromAttr(fromAttr))
		_ = nfs3.EncodeWccData(&buf, wccFromAttr(toAttr))
		return buf.Bytes(), nil
	}

	movedID, fromBefore, fromAfter, toBefore, toAfter, merr := h.FSAL.Rename(ctx, fromDirPath, fromName, toDirPath, toName)
	if merr == nil {
		h.Handles.Rename(movedID, join(toDirPath, toName))
	}

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(merr))
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: fromBefore, After: fromAfter})
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: toBefore, After: toAfter})
	return buf.Bytes(), nil
}

// Link implements NFSPROC3_LINK (RFC 1813 §3.3.15): create a hard link to
// an existing file. The File Handle Service keeps the link's original
// handle valid — inode-keyed handles are stable across an added link,
// unlike a path-hash scheme that would need a second identity for the
// new name.
func (h *Handlers) Link(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	dirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	name, err := d.String()
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	dirPath, rerr := h.resolve(dirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		attr, _ := h.FSAL.GetAttr(ctx, relPath)
		dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)
		var buf bytes.Buffer
		_ = xdr.WriteUint32(&buf, status)
		_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
		_ = nfs3.EncodeWccData(&buf, wccFromAttr(dirAttr))
		return buf.Bytes(), nil
	}

	attr, dirBefore, dirAfter, lerr := h.FSAL.Link(ctx, relPath, dirPath, name)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(lerr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: dirBefore, After: dirAfter})
	return buf.Bytes(), nil
}

func join(dirRelPath, name string) string {
	if dirRelPath == "" {
		return name
	}
	return dirRelPath + "/" + name
}

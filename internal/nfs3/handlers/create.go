package handlers

import (
	"bytes"

	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// writeCreateResult encodes the common CREATE/MKDIR/SYMLINK/MKNOD result
// shape: status, optional object handle, optional object attributes,
// directory wcc_data.
func (h *Handlers) writeCreateResult(status uint32, obj fsal.Object, objType uint32, attr *nfs3.FileAttr, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, hasObj bool) []byte {
	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, status)

	var childHandle []byte
	if hasObj && status == nfs3.OK {
		childHandle = h.handleFor(objType, obj)
	}
	_ = nfs3.EncodeOptionalHandle(&buf, childHandle)
	if status == nfs3.OK {
		_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	} else {
		_ = nfs3.EncodeOptionalFileAttr(&buf, nil)
	}
	_ = nfs3.EncodeWccData(&buf, nfs3.WccData{Before: dirBefore, After: dirAfter})
	return buf.Bytes()
}

// Create implements NFSPROC3_CREATE (RFC 1813 §3.3.8), including the
// UNCHECKED/GUARDED/EXCLUSIVE discriminators.
func (h *Handlers) Create(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	dirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	name, err := d.String()
	if err != nil {
		return nil, err
	}
	modeVal, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	var sattr *nfs3.SetAttr
	var verf [8]byte
	var createMode fsal.CreateMode
	switch modeVal {
	case nfs3.Unchecked:
		createMode = fsal.CreateUnchecked
		if sattr, err = nfs3.DecodeSetAttr(d); err != nil {
			return nil, err
		}
	case nfs3.Guarded:
		createMode = fsal.CreateGuarded
		if sattr, err = nfs3.DecodeSetAttr(d); err != nil {
			return nil, err
		}
	case nfs3.Exclusive:
		createMode = fsal.CreateExclusive
		raw, ferr := d.FixedOpaque(8)
		if ferr != nil {
			return nil, ferr
		}
		copy(verf[:], raw)
	default:
		return nil, errInvalidStable
	}

	dirPath, rerr := h.resolve(dirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)
		wcc := wccFromAttr(dirAttr)
		return h.writeCreateResult(status, fsal.Object{}, 0, nil, wcc.Before, wcc.After, false), nil
	}

	obj, attr, dirBefore, dirAfter, cerr := h.FSAL.Create(ctx, dirPath, name, createMode, sattr, verf)
	status := errStatus(cerr)
	return h.writeCreateResult(status, obj, ftypeOf(attr), attr, dirBefore, dirAfter, true), nil
}

// Mkdir implements NFSPROC3_MKDIR (RFC 1813 §3.3.9).
func (h *Handlers) Mkdir(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	dirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	name, err := d.String()
	if err != nil {
		return nil, err
	}
	sattr, err := nfs3.DecodeSetAttr(d)
	if err != nil {
		return nil, err
	}

	dirPath, rerr := h.resolve(dirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)
		wcc := wccFromAttr(dirAttr)
		return h.writeCreateResult(status, fsal.Object{}, 0, nil, wcc.Before, wcc.After, false), nil
	}

	obj, attr, dirBefore, dirAfter, merr := h.FSAL.Mkdir(ctx, dirPath, name, sattr)
	status := errStatus(merr)
	return h.writeCreateResult(status, obj, nfs3.TypeDir, attr, dirBefore, dirAfter, true), nil
}

// Symlink implements NFSPROC3_SYMLINK (RFC 1813 §3.3.10).
func (h *Handlers) Symlink(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	dirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	name, err := d.String()
	if err != nil {
		return nil, err
	}
	sattr, err := nfs3.DecodeSetAttr(d)
	if err != nil {
		return nil, err
	}
	target, err := d.String()
	if err != nil {
		return nil, err
	}

	dirPath, rerr := h.resolve(dirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)
		wcc := wccFromAttr(dirAttr)
		return h.writeCreateResult(status, fsal.Object{}, 0, nil, wcc.Before, wcc.After, false), nil
	}

	obj, attr, dirBefore, dirAfter, serr := h.FSAL.Symlink(ctx, dirPath, name, target, sattr)
	status := errStatus(serr)
	return h.writeCreateResult(status, obj, nfs3.TypeLnk, attr, dirBefore, dirAfter, true), nil
}

// Mknod implements NFSPROC3_MKNOD (RFC 1813 §3.3.11): device, socket, and
// FIFO nodes. Regular files and directories are rejected here since
// CREATE/MKDIR are their dedicated procedures.
func (h *Handlers) Mknod(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	dirFH, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}
	name, err := d.String()
	if err != nil {
		return nil, err
	}
	ftype, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	var sattr *nfs3.SetAttr
	var major, minor uint32
	switch ftype {
	case nfs3.TypeChr, nfs3.TypeBlk:
		if sattr, err = nfs3.DecodeSetAttr(d); err != nil {
			return nil, err
		}
		if major, err = d.Uint32(); err != nil {
			return nil, err
		}
		if minor, err = d.Uint32(); err != nil {
			return nil, err
		}
	case nfs3.TypeSock, nfs3.TypeFifo:
		if sattr, err = nfs3.DecodeSetAttr(d); err != nil {
			return nil, err
		}
	default:
		return statusOnly(nfs3.ErrBadType), nil
	}

	dirPath, rerr := h.resolve(dirFH)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}

	if status := nfs3.NameStatus(name); status != nfs3.OK {
		dirAttr, _ := h.FSAL.GetAttr(ctx, dirPath)
		wcc := wccFromAttr(dirAttr)
		return h.writeCreateResult(status, fsal.Object{}, 0, nil, wcc.Before, wcc.After, false), nil
	}

	obj, attr, dirBefore, dirAfter, merr := h.FSAL.Mknod(ctx, dirPath, name, ftype, major, minor, sattr)
	status := errStatus(merr)
	return h.writeCreateResult(status, obj, ftype, attr, dirBefore, dirAfter, true), nil
}

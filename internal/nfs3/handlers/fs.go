package handlers

import (
	"bytes"

	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// FsStat implements NFSPROC3_FSSTAT (RFC 1813 §3.3.18).
func (h *Handlers) FsStat(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	attr, _ := h.FSAL.GetAttr(ctx, relPath)
	stat, serr := h.FSAL.Statfs(ctx, relPath)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(serr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	if serr == nil {
		_ = xdr.WriteUint64(&buf, stat.TBytes)
		_ = xdr.WriteUint64(&buf, stat.FBytes)
		_ = xdr.WriteUint64(&buf, stat.ABytes)
		_ = xdr.WriteUint64(&buf, stat.TFiles)
		_ = xdr.WriteUint64(&buf, stat.FFiles)
		_ = xdr.WriteUint64(&buf, stat.AFiles)
		_ = xdr.WriteUint32(&buf, stat.InvarSec)
	}
	return buf.Bytes(), nil
}

// FsInfo implements NFSPROC3_FSINFO (RFC 1813 §3.3.19).
func (h *Handlers) FsInfo(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	attr, _ := h.FSAL.GetAttr(ctx, relPath)
	info, ferr := h.FSAL.FSInfo(ctx, relPath)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(ferr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	if ferr == nil {
		_ = xdr.WriteUint32(&buf, info.RtMax)
		_ = xdr.WriteUint32(&buf, info.RtPref)
		_ = xdr.WriteUint32(&buf, info.RtMult)
		_ = xdr.WriteUint32(&buf, info.WtMax)
		_ = xdr.WriteUint32(&buf, info.WtPref)
		_ = xdr.WriteUint32(&buf, info.WtMult)
		_ = xdr.WriteUint32(&buf, info.DtPref)
		_ = xdr.WriteUint64(&buf, info.MaxFileSize)
		_ = xdr.WriteUint32(&buf, info.TimeDelta.Seconds)
		_ = xdr.WriteUint32(&buf, info.TimeDelta.Nseconds)
		_ = xdr.WriteUint32(&buf, info.Properties)
	}
	return buf.Bytes(), nil
}

// PathConf implements NFSPROC3_PATHCONF (RFC 1813 §3.3.20).
func (h *Handlers) PathConf(ctx *Context, args []byte) ([]byte, error) {
	d := xdr.NewDecoder(args)
	fh, err := decodeHandle(d)
	if err != nil {
		return nil, err
	}

	relPath, rerr := h.resolve(fh)
	if rerr != nil {
		return statusOnly(errStatus(rerr)), nil
	}
	attr, _ := h.FSAL.GetAttr(ctx, relPath)
	pc, perr := h.FSAL.PathConf(ctx, relPath)

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, errStatus(perr))
	_ = nfs3.EncodeOptionalFileAttr(&buf, attr)
	if perr == nil {
		_ = xdr.WriteUint32(&buf, pc.LinkMax)
		_ = xdr.WriteUint32(&buf, pc.NameMax)
		_ = xdr.WriteBool(&buf, pc.NoTrunc)
		_ = xdr.WriteBool(&buf, pc.ChownRestricted)
		_ = xdr.WriteBool(&buf, pc.CaseInsensitive)
		_ = xdr.WriteBool(&buf, pc.CasePreserving)
	}
	return buf.Bytes(), nil
}

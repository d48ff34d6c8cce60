package handlers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/xdr"
)

// decodeHandle reads an opaque nfs_fh3: a 4-byte length followed by up to
// NFS3_FHSIZE bytes of handle data.
func decodeHandle(d *xdr.Decoder) ([]byte, error) {
	h, err := d.Opaque()
	if err != nil {
		return nil, err
	}
	if len(h) == 0 || len(h) > nfs3.MaxFH3Size {
		return nil, fmt.Errorf("nfs3: invalid file handle length %d", len(h))
	}
	return h, nil
}

func writeHandle(buf *bytes.Buffer, h []byte) error {
	return xdr.WriteOpaque(buf, h)
}

// statusOnly builds the reply for a procedure that failed before any
// result-specific fields were known: just the nfsstat3 discriminant.
func statusOnly(status uint32) []byte {
	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, status)
	return buf.Bytes()
}

// errStatus maps an FSAL error to its nfsstat3 code, treating a nil error
// as success.
func errStatus(err error) uint32 {
	if err == nil {
		return nfs3.OK
	}
	if errors.Is(err, fsal.ErrNotDir) {
		return nfs3.ErrNotDir
	}
	return fsal.StatusFor(err)
}

// wccFromAttr builds a wcc_data for a directory a procedure never
// mutated — an argument-validation failure short-circuiting before the
// FSAL call, for instance. Pre- and post-op snapshots are identical
// since nothing changed; a nil attr (the best-effort GetAttr itself
// failed) yields an all-absent wcc_data.
func wccFromAttr(attr *nfs3.FileAttr) nfs3.WccData {
	if attr == nil {
		return nfs3.WccData{}
	}
	return nfs3.WccData{
		Before: &nfs3.WccAttr{Size: attr.Size, Mtime: attr.Mtime, Ctime: attr.Ctime},
		After:  attr,
	}
}

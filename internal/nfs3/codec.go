package nfs3

import (
	"bytes"
	"fmt"

	"github.com/go-nfsd/exportd/internal/xdr"
)

// EncodeFileAttr writes a fattr3 record: exactly 84 bytes, fields in the
// fixed order RFC 1813 §2.5.1 mandates regardless of host representation.
func EncodeFileAttr(buf *bytes.Buffer, a *FileAttr) error {
	fields := []uint32{a.Type, a.Mode, a.Nlink, a.UID, a.GID}
	for _, f := range fields {
		if err := xdr.WriteUint32(buf, f); err != nil {
			return err
		}
	}
	if err := xdr.WriteUint64(buf, a.Size); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, a.Used); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, a.RdevMajor); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, a.RdevMinor); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, a.Fsid); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, a.FileID); err != nil {
		return err
	}
	return encodeTimes(buf, a.Atime, a.Mtime, a.Ctime)
}

func encodeTimes(buf *bytes.Buffer, times ...NFSTime) error {
	for _, t := range times {
		if err := xdr.WriteUint32(buf, t.Seconds); err != nil {
			return err
		}
		if err := xdr.WriteUint32(buf, t.Nseconds); err != nil {
			return err
		}
	}
	return nil
}

// DecodeFileAttr reads a fattr3 record. Only used where a client supplies
// one inline (none of the 22 procedures take a bare fattr3 as input, but
// tests and future procedures may need it).
func DecodeFileAttr(d *xdr.Decoder) (*FileAttr, error) {
	a := &FileAttr{}
	var err error
	if a.Type, err = d.Uint32(); err != nil {
		return nil, err
	}
	if a.Mode, err = d.Uint32(); err != nil {
		return nil, err
	}
	if a.Nlink, err = d.Uint32(); err != nil {
		return nil, err
	}
	if a.UID, err = d.Uint32(); err != nil {
		return nil, err
	}
	if a.GID, err = d.Uint32(); err != nil {
		return nil, err
	}
	if a.Size, err = d.Uint64(); err != nil {
		return nil, err
	}
	if a.Used, err = d.Uint64(); err != nil {
		return nil, err
	}
	if a.RdevMajor, err = d.Uint32(); err != nil {
		return nil, err
	}
	if a.RdevMinor, err = d.Uint32(); err != nil {
		return nil, err
	}
	if a.Fsid, err = d.Uint64(); err != nil {
		return nil, err
	}
	if a.FileID, err = d.Uint64(); err != nil {
		return nil, err
	}
	for _, t := range []*NFSTime{&a.Atime, &a.Mtime, &a.Ctime} {
		if t.Seconds, err = d.Uint32(); err != nil {
			return nil, err
		}
		if t.Nseconds, err = d.Uint32(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// EncodeOptionalFileAttr writes a post_op_attr: a present/absent
// discriminator followed by the fattr3 when present.
func EncodeOptionalFileAttr(buf *bytes.Buffer, a *FileAttr) error {
	return xdr.WriteOptional(buf, a != nil, func() error {
		return EncodeFileAttr(buf, a)
	})
}

// EncodeOptionalHandle writes a post_op_fh3.
func EncodeOptionalHandle(buf *bytes.Buffer, handle []byte) error {
	return xdr.WriteOptional(buf, handle != nil, func() error {
		return xdr.WriteOpaque(buf, handle)
	})
}

// EncodeWccAttr writes a wcc_attr: size, mtime, ctime (24 bytes).
func EncodeWccAttr(buf *bytes.Buffer, a *WccAttr) error {
	if err := xdr.WriteUint64(buf, a.Size); err != nil {
		return err
	}
	return encodeTimes(buf, a.Mtime, a.Ctime)
}

// EncodeWccData writes a wcc_data pair: optional pre-op wcc_attr followed
// by optional post-op fattr3. Total size is 4 + 24·[pre present] +
// 4 + 84·[post present].
func EncodeWccData(buf *bytes.Buffer, wcc WccData) error {
	if err := xdr.WriteOptional(buf, wcc.Before != nil, func() error {
		return EncodeWccAttr(buf, wcc.Before)
	}); err != nil {
		return err
	}
	return EncodeOptionalFileAttr(buf, wcc.After)
}

// DecodeSetTime reads the atime/mtime union in sattr3: a discriminator
// followed by an inline nfstime3 only for SET_TO_CLIENT_TIME.
func DecodeSetTime(d *xdr.Decoder) (*SetTime, error) {
	how, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	switch how {
	case DontChange:
		return nil, nil
	case SetToServerTime:
		return &SetTime{How: how}, nil
	case SetToClientTime:
		sec, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		nsec, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		return &SetTime{How: how, Time: NFSTime{Seconds: sec, Nseconds: nsec}}, nil
	default:
		return nil, fmt.Errorf("nfs3: invalid time_how discriminant %d", how)
	}
}

// DecodeSetAttr reads a full sattr3: six independently optional setters.
func DecodeSetAttr(d *xdr.Decoder) (*SetAttr, error) {
	sa := &SetAttr{}

	setMode, err := d.Bool()
	if err != nil {
		return nil, err
	}
	if setMode {
		v, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		sa.Mode = &v
	}

	setUID, err := d.Bool()
	if err != nil {
		return nil, err
	}
	if setUID {
		v, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		sa.UID = &v
	}

	setGID, err := d.Bool()
	if err != nil {
		return nil, err
	}
	if setGID {
		v, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		sa.GID = &v
	}

	setSize, err := d.Bool()
	if err != nil {
		return nil, err
	}
	if setSize {
		v, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		sa.Size = &v
	}

	sa.Atime, err = DecodeSetTime(d)
	if err != nil {
		return nil, fmt.Errorf("nfs3: decode sattr atime: %w", err)
	}
	sa.Mtime, err = DecodeSetTime(d)
	if err != nil {
		return nil, fmt.Errorf("nfs3: decode sattr mtime: %w", err)
	}

	return sa, nil
}

// DecodeSattrGuard reads the optional pre-op ctime guard trailing a
// SETATTR argument.
func DecodeSattrGuard(d *xdr.Decoder) (*SattrGuard, error) {
	present, err := d.Bool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	sec, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	nsec, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	return &SattrGuard{Check: true, Ctime: NFSTime{Seconds: sec, Nseconds: nsec}}, nil
}

// MaxNameLength bounds a single directory-entry component, matching the
// name_max PATHCONF advertises.
const MaxNameLength = 255

// ValidateName enforces the filename constraints common to every
// procedure that takes a directory entry name: non-empty, no embedded
// NUL or '/', and within a sane component-length bound. RFC 1813 predates
// mandatory UTF-8 — arbitrary 8-bit clean content is accepted.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("nfs3: empty name")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("nfs3: name too long: %d bytes", len(name))
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return fmt.Errorf("nfs3: name contains embedded NUL")
		}
		if name[i] == '/' {
			return fmt.Errorf("nfs3: name contains '/'")
		}
	}
	return nil
}

// NameStatus validates name and returns the nfsstat3 code a handler
// should reply with: NFS3ERR_NAMETOOLONG for an over-length component
// (the error taxonomy's distinct "name-too-long" case), NFS3ERR_INVAL
// for anything else ValidateName rejects, or OK if the name is valid.
func NameStatus(name string) uint32 {
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := ValidateName(name); err != nil {
		return ErrInval
	}
	return OK
}

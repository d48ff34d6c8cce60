// Package nfs3 holds the NFSv3 (RFC 1813) wire types, status codes, and
// the fattr3/wcc_data/sattr3 codecs shared by every procedure handler.
package nfs3

// Procedure numbers, program 100003 version 3.
const (
	ProcNull        uint32 = 0
	ProcGetAttr     uint32 = 1
	ProcSetAttr     uint32 = 2
	ProcLookup      uint32 = 3
	ProcAccess      uint32 = 4
	ProcReadlink    uint32 = 5
	ProcRead        uint32 = 6
	ProcWrite       uint32 = 7
	ProcCreate      uint32 = 8
	ProcMkdir       uint32 = 9
	ProcSymlink     uint32 = 10
	ProcMknod       uint32 = 11
	ProcRemove      uint32 = 12
	ProcRmdir       uint32 = 13
	ProcRename      uint32 = 14
	ProcLink        uint32 = 15
	ProcReaddir     uint32 = 16
	ProcReaddirPlus uint32 = 17
	ProcFsStat      uint32 = 18
	ProcFsInfo      uint32 = 19
	ProcPathconf    uint32 = 20
	ProcCommit      uint32 = 21

	ProcMax uint32 = ProcCommit
)

// MaxFH3Size is the maximum length, in bytes, of an opaque file handle
// (RFC 1813 §2.3.3 NFS3_FHSIZE).
const MaxFH3Size = 64

// ftype3 object type discriminators (RFC 1813 §2.5.1).
const (
	TypeReg  uint32 = 1
	TypeDir  uint32 = 2
	TypeBlk  uint32 = 3
	TypeChr  uint32 = 4
	TypeLnk  uint32 = 5
	TypeSock uint32 = 6
	TypeFifo uint32 = 7
)

// nfsstat3 status codes (RFC 1813 §2.6).
const (
	OK             uint32 = 0
	ErrPerm        uint32 = 1
	ErrNoent       uint32 = 2
	ErrIO          uint32 = 5
	ErrNXIO        uint32 = 6
	ErrAcces       uint32 = 13
	ErrExist       uint32 = 17
	ErrXDev        uint32 = 18
	ErrNodev       uint32 = 19
	ErrNotDir      uint32 = 20
	ErrIsDir       uint32 = 21
	ErrInval       uint32 = 22
	ErrFBig        uint32 = 27
	ErrNoSpc       uint32 = 28
	ErrROFS        uint32 = 30
	ErrMlink       uint32 = 31
	ErrNameTooLong uint32 = 63
	ErrNotEmpty    uint32 = 66
	ErrDquot       uint32 = 69
	ErrStale       uint32 = 70
	ErrRemote      uint32 = 71
	ErrBadHandle   uint32 = 10001
	ErrNotSync     uint32 = 10002
	ErrBadCookie   uint32 = 10003
	ErrNotSupp     uint32 = 10004
	ErrTooSmall    uint32 = 10005
	ErrServerFault uint32 = 10006
	ErrBadType     uint32 = 10007
	ErrJukebox     uint32 = 10008
)

// stable_how values on WRITE (RFC 1813 §3.3.7).
const (
	Unstable  uint32 = 0
	DataSync  uint32 = 1
	FileSync  uint32 = 2
	MaxStable        = FileSync
)

// createmode3 discriminators on CREATE (RFC 1813 §3.3.8).
const (
	Unchecked uint32 = 0
	Guarded   uint32 = 1
	Exclusive uint32 = 2
)

// time_how discriminators in sattr3 (RFC 1813 §2.6).
const (
	DontChange      uint32 = 0
	SetToServerTime uint32 = 1
	SetToClientTime uint32 = 2
)

// ACCESS request/response bits (RFC 1813 §3.3.4).
const (
	Access3Read    uint32 = 0x0001
	Access3Lookup  uint32 = 0x0002
	Access3Modify  uint32 = 0x0004
	Access3Extend  uint32 = 0x0008
	Access3Delete  uint32 = 0x0010
	Access3Execute uint32 = 0x0020
)

// FSINFO properties bits (RFC 1813 §3.3.19).
const (
	FSF3Link       uint32 = 0x0001
	FSF3Symlink    uint32 = 0x0002
	FSF3Homogen    uint32 = 0x0008
	FSF3CanSetTime uint32 = 0x0010
)

// NFSTime is nfstime3: seconds and nanoseconds since the epoch
// (RFC 1813 §2.5.2).
type NFSTime struct {
	Seconds  uint32
	Nseconds uint32
}

// FileAttr is fattr3, the fixed 84-byte object attribute record
// (RFC 1813 §2.5.1).
type FileAttr struct {
	Type       uint32
	Mode       uint32
	Nlink      uint32
	UID        uint32
	GID        uint32
	Size       uint64
	Used       uint64
	RdevMajor  uint32
	RdevMinor  uint32
	Fsid       uint64
	FileID     uint64
	Atime      NFSTime
	Mtime      NFSTime
	Ctime      NFSTime
}

// WccAttr is wcc_attr, the 24-byte pre-operation snapshot captured before
// a mutating call executes (RFC 1813 §3.3.1).
type WccAttr struct {
	Size  uint64
	Mtime NFSTime
	Ctime NFSTime
}

// WccData is wcc_data: an optional pre-op snapshot paired with an
// optional post-op fattr3, returned on every mutating procedure whether
// it succeeded or failed.
type WccData struct {
	Before *WccAttr
	After  *FileAttr
}

// SetTime is the atime/mtime arm of sattr3: a three-valued discriminator
// (DONT_CHANGE / SET_TO_SERVER_TIME / SET_TO_CLIENT_TIME) where only the
// client-time arm carries an inline nfstime3.
type SetTime struct {
	How  uint32
	Time NFSTime
}

// SetAttr is sattr3: six independently-optional setters. Each pointer
// being nil means "don't touch this field" — this is a set of tagged
// optionals, not a partial struct to be merged naively.
type SetAttr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *SetTime
	Mtime *SetTime
}

// SattrGuard is the optional pre-operation ctime check attached to
// SETATTR (RFC 1813 §3.3.2).
type SattrGuard struct {
	Check bool
	Ctime NFSTime
}

// FSStat holds the statvfs-shaped result of FSSTAT (RFC 1813 §3.3.18).
type FSStat struct {
	TBytes   uint64
	FBytes   uint64
	ABytes   uint64
	TFiles   uint64
	FFiles   uint64
	AFiles   uint64
	InvarSec uint32
}

// FSInfo holds the static capability record returned by FSINFO
// (RFC 1813 §3.3.19).
type FSInfo struct {
	RtMax       uint32
	RtPref      uint32
	RtMult      uint32
	WtMax       uint32
	WtPref      uint32
	WtMult      uint32
	DtPref      uint32
	MaxFileSize uint64
	TimeDelta   NFSTime
	Properties  uint32
}

// PathConf holds the POSIX pathconf-shaped result of PATHCONF
// (RFC 1813 §3.3.20).
type PathConf struct {
	LinkMax        uint32
	NameMax        uint32
	NoTrunc        bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

// DirEntry is one entry of a READDIR/READDIRPLUS result: a fileid, the
// entry name, and the opaque cookie identifying the position just past
// it.
type DirEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
	// Attr/Handle are not filled by the FSAL; READDIRPLUS looks up each
	// entry's attributes and handle itself while encoding.
	Attr   *FileAttr
	Handle []byte
}

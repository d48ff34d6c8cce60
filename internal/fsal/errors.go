package fsal

import "errors"

// Error categories an FSAL implementation returns instead of raw OS
// errors. The NFSv3 handlers map each category to exactly one nfsstat3
// code (RFC 1813 §2.6); a concrete FSAL should wrap its os/unix errors
// with errors.Join or fmt.Errorf("...: %w", ErrX) so errors.Is still
// matches.
var (
	ErrNotFound    = errors.New("fsal: not found")
	ErrPermission  = errors.New("fsal: permission denied")
	ErrExist       = errors.New("fsal: already exists")
	ErrIsDir       = errors.New("fsal: is a directory")
	ErrNotDir      = errors.New("fsal: not a directory")
	ErrInvalid     = errors.New("fsal: invalid argument")
	ErrNoSpace     = errors.New("fsal: no space left")
	ErrReadOnly    = errors.New("fsal: read-only filesystem")
	ErrNotEmpty    = errors.New("fsal: directory not empty")
	ErrNameTooLong = errors.New("fsal: name too long")
	ErrTooBig      = errors.New("fsal: file too big")
	ErrNotSupp     = errors.New("fsal: operation not supported")
	ErrStale       = errors.New("fsal: stale handle")
)

// StatusFor maps an FSAL error category to its nfsstat3 code. Unmatched
// errors fall through to NFS3ERR_SERVERFAULT, the catch-all for anything
// outside the fixed taxonomy.
func StatusFor(err error) uint32 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return 2 // NFS3ERR_NOENT
	case errors.Is(err, ErrPermission):
		return 13 // NFS3ERR_ACCES
	case errors.Is(err, ErrExist):
		return 17 // NFS3ERR_EXIST
	case errors.Is(err, ErrIsDir):
		return 21 // NFS3ERR_ISDIR
	case errors.Is(err, ErrNotDir):
		return 20 // NFS3ERR_NOTDIR
	case errors.Is(err, ErrInvalid):
		return 22 // NFS3ERR_INVAL
	case errors.Is(err, ErrNoSpace):
		return 28 // NFS3ERR_NOSPC
	case errors.Is(err, ErrReadOnly):
		return 30 // NFS3ERR_ROFS
	case errors.Is(err, ErrNotEmpty):
		return 66 // NFS3ERR_NOTEMPTY
	case errors.Is(err, ErrNameTooLong):
		return 63 // NFS3ERR_NAMETOOLONG
	case errors.Is(err, ErrTooBig):
		return 27 // NFS3ERR_FBIG
	case errors.Is(err, ErrStale):
		return 70 // NFS3ERR_STALE
	case errors.Is(err, ErrNotSupp):
		return 10004 // NFS3ERR_NOTSUPP
	default:
		return 10006 // NFS3ERR_SERVERFAULT
	}
}

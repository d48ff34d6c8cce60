// Package mount implements the MOUNT v3 side-channel protocol
// (RFC 1813 Appendix I) NFSv3 clients use to obtain a root file handle
// for an export before issuing any NFS call.
package mount

// Procedure numbers, program 100005 version 3.
const (
	ProcNull    uint32 = 0
	ProcMnt     uint32 = 1
	ProcDump    uint32 = 2
	ProcUmnt    uint32 = 3
	ProcUmntAll uint32 = 4
	ProcExport  uint32 = 5

	ProcMax uint32 = ProcExport
)

// mountstat3 status codes (RFC 1813 Appendix I §5.1.3).
const (
	OK             uint32 = 0
	ErrPerm        uint32 = 1
	ErrNoEnt       uint32 = 2
	ErrIO          uint32 = 5
	ErrAcces       uint32 = 13
	ErrNotDir      uint32 = 20
	ErrInval       uint32 = 22
	ErrNameTooLong uint32 = 63
	ErrNotSupp     uint32 = 10004
	ErrServerFault uint32 = 10006
)

// AuthFlavorNone/AuthFlavorSys are the only auth_flavors this exporter
// advertises in a successful MNT reply.
const (
	AuthFlavorNone uint32 = 0
	AuthFlavorSys  uint32 = 1
)

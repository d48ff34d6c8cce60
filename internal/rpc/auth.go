package rpc

import (
	"fmt"

	"github.com/go-nfsd/exportd/internal/xdr"
)

const (
	maxMachineNameLength = 255
	maxGIDs              = 16
)

// UnixAuth is the decoded body of an AUTH_SYS (RFC 5531's AUTH_UNIX)
// credential: a timestamp, the client's machine name, and the calling
// user's uid/gid/supplementary-gid list. These fields are parsed and
// trusted as-is — there is no verification step, matching AUTH_SYS's own
// lack of cryptographic integrity.
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// ParseUnixAuth decodes an AUTH_SYS credential body. It rejects bodies
// that are empty, carry an implausibly long machine name, or list more
// supplementary groups than NFS_AUTH_SYS_MAX_GIDS — these are malformed
// payloads, not legitimate edge cases.
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("rpc: empty AUTH_SYS credential body")
	}

	d := xdr.NewDecoder(body)

	stamp, err := d.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode auth stamp: %w", err)
	}
	machineName, err := d.String()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode machine name: %w", err)
	}
	if len(machineName) > maxMachineNameLength {
		return nil, fmt.Errorf("rpc: machine name too long: %d bytes", len(machineName))
	}
	uid, err := d.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode uid: %w", err)
	}
	gid, err := d.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode gid: %w", err)
	}
	numGIDs, err := d.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode gid count: %w", err)
	}
	if numGIDs > maxGIDs {
		return nil, fmt.Errorf("rpc: too many gids: %d", numGIDs)
	}
	gids := make([]uint32, numGIDs)
	for i := range gids {
		gids[i], err = d.Uint32()
		if err != nil {
			return nil, fmt.Errorf("rpc: decode gid[%d]: %w", i, err)
		}
	}

	return &UnixAuth{
		Stamp:       stamp,
		MachineName: machineName,
		UID:         uid,
		GID:         gid,
		GIDs:        gids,
	}, nil
}

// Credentials is the caller identity threaded through a dispatched
// procedure. AUTH_NONE calls carry the zero value; AUTH_SYS calls carry
// the parsed uid/gid. The FSAL never enforces permissions against this —
// a host-filesystem exporter trusts whatever it's told; credentials of
// any other flavor are rejected (see ResolveCredentials).
type Credentials struct {
	Flavor uint32
	UID    uint32
	GID    uint32
}

// ResolveCredentials extracts Credentials from a CALL's cred field.
// Any flavor other than AUTH_NONE/AUTH_SYS is rejected at the RPC layer
// with AUTH_REJECTEDCRED.
func ResolveCredentials(cred OpaqueAuth) (Credentials, bool) {
	switch cred.Flavor {
	case AuthFlavorNone:
		return Credentials{Flavor: AuthFlavorNone}, true
	case AuthFlavorSys:
		unix, err := ParseUnixAuth(cred.Body)
		if err != nil {
			return Credentials{}, false
		}
		return Credentials{Flavor: AuthFlavorSys, UID: unix.UID, GID: unix.GID}, true
	default:
		return Credentials{}, false
	}
}

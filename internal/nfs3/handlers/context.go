// Package handlers implements the 22 NFSv3 procedures (RFC 1813 §3) as
// argument-decode / FSAL-call / result-encode triples, one logical group
// of related procedures per file.
package handlers

import (
	"context"

	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/nfs3/handle"
)

// Context carries the per-call state every procedure needs beyond its own
// arguments: the caller's credentials (for ACCESS/permission-adjacent
// decisions the FSAL delegates back to the core) and cancellation.
type Context struct {
	context.Context
	ClientAddr string
	UID, GID   uint32
}

// Handlers holds the collaborators every procedure calls into. A single
// instance is shared across connections; all state it owns (the handle
// Service, the FSAL) must be safe for concurrent use.
type Handlers struct {
	FSAL    fsal.FSAL
	Handles *handle.Service
	Root    string // not read by any procedure; the root handle is minted from the export root's own fileid
}

// resolve maps a wire handle to the export-relative path the FSAL expects,
// returning NFS3ERR_STALE if the fileid is unknown.
func (h *Handlers) resolve(fh []byte) (string, error) {
	relPath, _, ok := h.Handles.Resolve(fh)
	if !ok {
		return "", fsal.ErrStale
	}
	return relPath, nil
}

// handleFor mints or refreshes a handle for an FSAL object, recording its
// current path so future LOOKUPs and renames keep it valid.
func (h *Handlers) handleFor(objType uint32, obj fsal.Object) []byte {
	return h.Handles.HandleFor(objType, obj.FileID, obj.Path)
}

func ftypeOf(attr *nfs3.FileAttr) uint32 {
	if attr == nil {
		return nfs3.TypeReg
	}
	return attr.Type
}

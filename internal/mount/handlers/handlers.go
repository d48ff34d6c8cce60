// Package handlers implements the six MOUNT v3 procedures (RFC 1813
// Appendix I) as argument-decode / action / result-encode triples,
// mirroring the split used by internal/nfs3/handlers.
package handlers

import (
	"context"
	"strings"
	"sync"

	"github.com/go-nfsd/exportd/internal/mount"
)

// Context carries the per-call state every MOUNT procedure needs.
type Context struct {
	context.Context
	ClientAddr string
}

// Proc is the uniform shape every MOUNT procedure handler satisfies.
type Proc func(ctx *Context, args []byte) ([]byte, error)

// clientHost strips a port suffix from a dotted-quad or bracketed IPv6
// address, since DUMP/EXPORT report hosts, not socket addresses.
func clientHost(addr string) string {
	if i := strings.LastIndex(addr, ":"); i > 0 && !strings.Contains(addr[i+1:], "]") {
		return addr[:i]
	}
	return addr
}

// entry records one outstanding mount, for DUMP/UMNTALL bookkeeping.
// Scoped to the single export this server configures, per SPEC_FULL's
// "scoped down to the single configured export" note.
type entry struct {
	host string
	path string
}

// Handlers holds the single export this server serves and the in-memory
// mount-entry list RFC 1813's DUMP/UMNTALL rely on. There is no
// persistence across restart — a remounted client simply re-registers.
type Handlers struct {
	ExportPath string
	RootHandle []byte
	Groups     []string

	mu      sync.Mutex
	entries map[string]entry // host -> entry, one mount per client tracked
}

// New builds a Handlers for the single configured export, ready to hand
// out rootHandle (already minted by the File Handle Service) to any
// client that mounts exportPath.
func New(exportPath string, rootHandle []byte, groups []string) *Handlers {
	return &Handlers{
		ExportPath: normalize(exportPath),
		RootHandle: rootHandle,
		Groups:     groups,
		entries:    make(map[string]entry),
	}
}

// normalize strips a trailing slash so "/export" and "/export/" compare
// equal. The root export "/" is left untouched — stripping its only
// slash would make it compare equal to the empty string.
func normalize(path string) string {
	if path == "/" {
		return path
	}
	return strings.TrimRight(path, "/")
}

// Table returns the complete MOUNT v3 procedure dispatch table, indexed
// by procedure number (RFC 1813 Appendix I).
func (h *Handlers) Table() map[uint32]Proc {
	return map[uint32]Proc{
		mount.ProcNull:    h.Null,
		mount.ProcMnt:     h.Mnt,
		mount.ProcDump:    h.Dump,
		mount.ProcUmnt:    h.Umnt,
		mount.ProcUmntAll: h.UmntAll,
		mount.ProcExport:  h.Export,
	}
}

// Null implements MOUNTPROC3_NULL: a no-op liveness probe.
func (h *Handlers) Null(ctx *Context, args []byte) ([]byte, error) {
	return nil, nil
}

// Package handle implements the File Handle Service: construction and
// resolution of the opaque, ≤64-byte identifiers NFSv3 clients carry
// between calls to name a filesystem object.
package handle

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Handle is an opaque NFSv3 file handle. Despite embedding a type tag and
// a host inode number, it must be treated as opaque by every caller —
// no security-sensitive data belongs in it, and its internal shape may
// change without notice to clients.
type Handle []byte

// Size is the fixed encoded length of every handle this service mints:
// a 1-byte type discriminator plus an 8-byte fileid. Using the host
// filesystem's own inode number as the fileid means a handle keeps
// resolving to the same object across a rename, since POSIX inode
// numbers are rename-invariant on the same device — the scheme needs no
// extra bookkeeping to satisfy that invariant.
const Size = 9

// Encode builds the wire bytes for a handle given an object type
// (ftype3) and a fileid (host inode number). Same (objType, fileID)
// always produces the same bytes.
func Encode(objType uint32, fileID uint64) Handle {
	h := make(Handle, Size)
	h[0] = byte(objType)
	binary.BigEndian.PutUint64(h[1:], fileID)
	return h
}

// Decode extracts the type discriminator and fileid from handle bytes
// without consulting the Service — IsDirectory-style checks don't need a
// map lookup.
func Decode(h Handle) (objType uint32, fileID uint64, err error) {
	if len(h) != Size {
		return 0, 0, fmt.Errorf("handle: wrong length %d, want %d", len(h), Size)
	}
	return uint32(h[0]), binary.BigEndian.Uint64(h[1:]), nil
}

// Service is the process-wide bidirectional map from fileid to the
// object's current export-relative path. It is consulted on every
// LOOKUP/CREATE/MKDIR/SYMLINK/MKNOD to mint or refresh a handle, and
// mutated by RENAME and by REMOVE/RMDIR (which retire an entry so a
// later resolve reports STALE).
type Service struct {
	mu    sync.RWMutex
	paths map[uint64]string
}

func New() *Service {
	return &Service{paths: make(map[uint64]string)}
}

// HandleFor records the current path for fileID and returns its handle.
// Calling it again for the same fileID with a different path (as RENAME
// does) simply updates the record — the handle bytes are unchanged
// because they only ever encode the fileid.
func (s *Service) HandleFor(objType uint32, fileID uint64, relPath string) Handle {
	s.mu.Lock()
	s.paths[fileID] = relPath
	s.mu.Unlock()
	return Encode(objType, fileID)
}

// Resolve maps a handle back to the object's current export-relative
// path. ok is false — STALE, in NFS terms — if the fileid was never
// registered or has since been forgotten.
func (s *Service) Resolve(h Handle) (relPath string, objType uint32, ok bool) {
	objType, fileID, err := Decode(h)
	if err != nil {
		return "", 0, false
	}
	s.mu.RLock()
	relPath, found := s.paths[fileID]
	s.mu.RUnlock()
	return relPath, objType, found
}

// IsDirectory reports the handle's embedded object type without a map
// lookup or a stat call.
func (s *Service) IsDirectory(h Handle) bool {
	objType, _, err := Decode(h)
	return err == nil && objType == 2 // nfs3.TypeDir, avoided to dodge an import cycle
}

// Rename updates the path recorded for fileID after a successful host
// rename(2), so a handle minted before the move keeps resolving.
func (s *Service) Rename(fileID uint64, newPath string) {
	s.mu.Lock()
	if _, ok := s.paths[fileID]; ok {
		s.paths[fileID] = newPath
	}
	s.mu.Unlock()
}

// Forget retires a fileid after the object it named has been unlinked.
// Any handle still referencing it will subsequently resolve as STALE.
func (s *Service) Forget(fileID uint64) {
	s.mu.Lock()
	delete(s.paths, fileID)
	s.mu.Unlock()
}

// Lookup returns the path currently recorded for fileID, if any, without
// requiring the caller to reconstruct a handle first.
func (s *Service) Lookup(fileID uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paths[fileID]
	return p, ok
}

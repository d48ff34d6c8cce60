// Package fsal defines the File System Abstraction Layer: the narrow
// contract the NFSv3/MOUNT core consumes to effect host filesystem
// changes. Everything above this interface is pure protocol logic;
// everything below it is a concrete backend (internal/fsal/local, backed
// by a single host directory tree, is the only one shipped here).
package fsal

import (
	"context"

	"github.com/go-nfsd/exportd/internal/nfs3"
)

// CreateMode mirrors createmode3: how CREATE should behave when
// something already exists at the target name.
type CreateMode uint32

const (
	CreateUnchecked CreateMode = iota
	CreateGuarded
	CreateExclusive
)

// Object identifies a filesystem object to the core: its export-relative
// path (the identifier FSAL methods key off) and the host inode number
// the File Handle Service uses as a stable fileid.
type Object struct {
	Path   string
	FileID uint64
}

// FSAL is the contract the NFSv3 core calls into. Every mutating method
// returns enough before/after attribute state for the caller to build
// wcc_data without a second round trip; where the underlying host
// operation cannot capture both atomically, the implementation takes a
// best-effort GetAttr immediately before the mutation, accepting a small
// race window against concurrent mutators of the same object.
type FSAL interface {
	GetAttr(ctx context.Context, path string) (*nfs3.FileAttr, error)
	SetAttr(ctx context.Context, path string, sattr *nfs3.SetAttr, guard *nfs3.SattrGuard) (before *nfs3.WccAttr, after *nfs3.FileAttr, err error)

	Lookup(ctx context.Context, dirPath, name string) (Object, *nfs3.FileAttr, error)
	Access(ctx context.Context, path string, uid, gid uint32, requested uint32) (granted uint32, attr *nfs3.FileAttr, err error)

	Readlink(ctx context.Context, path string) (target string, attr *nfs3.FileAttr, err error)
	Read(ctx context.Context, path string, offset uint64, count uint32) (data []byte, eof bool, attr *nfs3.FileAttr, err error)
	Write(ctx context.Context, path string, offset uint64, data []byte, stable uint32) (n uint32, committed uint32, before *nfs3.WccAttr, after *nfs3.FileAttr, err error)
	Commit(ctx context.Context, path string, offset uint64, count uint32) (before *nfs3.WccAttr, after *nfs3.FileAttr, err error)

	Create(ctx context.Context, dirPath, name string, mode CreateMode, sattr *nfs3.SetAttr, verf [8]byte) (obj Object, attr *nfs3.FileAttr, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, err error)
	Mkdir(ctx context.Context, dirPath, name string, sattr *nfs3.SetAttr) (obj Object, attr *nfs3.FileAttr, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, err error)
	Symlink(ctx context.Context, dirPath, name, target string, sattr *nfs3.SetAttr) (obj Object, attr *nfs3.FileAttr, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, err error)
	Mknod(ctx context.Context, dirPath, name string, ftype uint32, major, minor uint32, sattr *nfs3.SetAttr) (obj Object, attr *nfs3.FileAttr, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, err error)

	Remove(ctx context.Context, dirPath, name string) (fileID uint64, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, err error)
	Rmdir(ctx context.Context, dirPath, name string) (fileID uint64, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, err error)
	Rename(ctx context.Context, fromDir, fromName, toDir, toName string) (movedFileID uint64, fromBefore *nfs3.WccAttr, fromAfter *nfs3.FileAttr, toBefore *nfs3.WccAttr, toAfter *nfs3.FileAttr, err error)
	Link(ctx context.Context, path, dirPath, name string) (attr *nfs3.FileAttr, dirBefore *nfs3.WccAttr, dirAfter *nfs3.FileAttr, err error)

	Readdir(ctx context.Context, dirPath string, cookie uint64, cookieVerf [8]byte, maxBytes uint32) (entries []nfs3.DirEntry, newVerf [8]byte, eof bool, err error)

	Statfs(ctx context.Context, path string) (*nfs3.FSStat, error)
	FSInfo(ctx context.Context, path string) (*nfs3.FSInfo, error)
	PathConf(ctx context.Context, path string) (*nfs3.PathConf, error)

	// WriteVerifier is the 8-byte server-instance cookie returned on every
	// WRITE and COMMIT reply; it must be stable for the process lifetime
	// and change on restart.
	WriteVerifier() [8]byte
}

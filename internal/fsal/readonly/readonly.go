// Package readonly wraps an fsal.FSAL so every mutating call fails with
// fsal.ErrReadOnly before it reaches the backend, gating mutation at the
// adapter boundary rather than inside each backend method.
package readonly

import (
	"context"

	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/nfs3"
)

// FS rejects every mutating operation with fsal.ErrReadOnly and passes
// every read-only operation through to the wrapped backend unchanged.
type FS struct {
	backend fsal.FSAL
}

// Wrap returns backend unchanged if readOnly is false, otherwise an FSAL
// that rejects mutations. Call sites don't need to branch on the flag
// themselves.
func Wrap(backend fsal.FSAL, readOnly bool) fsal.FSAL {
	if !readOnly {
		return backend
	}
	return &FS{backend: backend}
}

func (f *FS) GetAttr(ctx context.Context, path string) (*nfs3.FileAttr, error) {
	return f.backend.GetAttr(ctx, path)
}

func (f *FS) SetAttr(ctx context.Context, path string, sattr *nfs3.SetAttr, guard *nfs3.SattrGuard) (*nfs3.WccAttr, *nfs3.FileAttr, error) {
	return nil, nil, fsal.ErrReadOnly
}

func (f *FS) Lookup(ctx context.Context, dirPath, name string) (fsal.Object, *nfs3.FileAttr, error) {
	return f.backend.Lookup(ctx, dirPath, name)
}

func (f *FS) Access(ctx context.Context, path string, uid, gid uint32, requested uint32) (uint32, *nfs3.FileAttr, error) {
	return f.backend.Access(ctx, path, uid, gid, requested)
}

func (f *FS) Readlink(ctx context.Context, path string) (string, *nfs3.FileAttr, error) {
	return f.backend.Readlink(ctx, path)
}

func (f *FS) Read(ctx context.Context, path string, offset uint64, count uint32) ([]byte, bool, *nfs3.FileAttr, error) {
	return f.backend.Read(ctx, path, offset, count)
}

func (f *FS) Write(ctx context.Context, path string, offset uint64, data []byte, stable uint32) (uint32, uint32, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return 0, 0, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Commit(ctx context.Context, path string, offset uint64, count uint32) (*nfs3.WccAttr, *nfs3.FileAttr, error) {
	return nil, nil, fsal.ErrReadOnly
}

func (f *FS) Create(ctx context.Context, dirPath, name string, mode fsal.CreateMode, sattr *nfs3.SetAttr, verf [8]byte) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return fsal.Object{}, nil, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Mkdir(ctx context.Context, dirPath, name string, sattr *nfs3.SetAttr) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return fsal.Object{}, nil, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Symlink(ctx context.Context, dirPath, name, target string, sattr *nfs3.SetAttr) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return fsal.Object{}, nil, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Mknod(ctx context.Context, dirPath, name string, ftype uint32, major, minor uint32, sattr *nfs3.SetAttr) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return fsal.Object{}, nil, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Remove(ctx context.Context, dirPath, name string) (uint64, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return 0, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Rmdir(ctx context.Context, dirPath, name string) (uint64, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return 0, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Rename(ctx context.Context, fromDir, fromName, toDir, toName string) (uint64, *nfs3.WccAttr, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return 0, nil, nil, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Link(ctx context.Context, path, dirPath, name string) (*nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	return nil, nil, nil, fsal.ErrReadOnly
}

func (f *FS) Readdir(ctx context.Context, dirPath string, cookie uint64, cookieVerf [8]byte, maxBytes uint32) ([]nfs3.DirEntry, [8]byte, bool, error) {
	return f.backend.Readdir(ctx, dirPath, cookie, cookieVerf, maxBytes)
}

func (f *FS) Statfs(ctx context.Context, path string) (*nfs3.FSStat, error) {
	return f.backend.Statfs(ctx, path)
}

func (f *FS) FSInfo(ctx context.Context, path string) (*nfs3.FSInfo, error) {
	return f.backend.FSInfo(ctx, path)
}

func (f *FS) PathConf(ctx context.Context, path string) (*nfs3.PathConf, error) {
	return f.backend.PathConf(ctx, path)
}

func (f *FS) WriteVerifier() [8]byte {
	return f.backend.WriteVerifier()
}

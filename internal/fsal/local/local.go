// Package local implements internal/fsal.FSAL against a host directory
// subtree using the standard library and golang.org/x/sys/unix, the
// reference backend needed to make the exporter runnable.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/logger"
	"github.com/go-nfsd/exportd/internal/nfs3"
)

// FS is the local-disk FSAL backend. It roots every operation under root
// and never follows a resolved path outside of it.
type FS struct {
	root string

	writeVerf [8]byte

	mu          sync.Mutex
	cookieVerfs map[string][8]byte // directory path -> current cookieverf
	watcher     *fsnotify.Watcher

	// createVerifiers records EXCLUSIVE-create verifiers so a redelivered
	// CREATE with the same verifier is a no-op success rather than
	// NFS3ERR_EXIST. Held in memory only: writeverf3 changes on restart,
	// which signals clients to re-send rather than rely on the verifier
	// table surviving a crash.
	createVerifiers map[string][8]byte
}

// New opens root as the export root. root must already exist and be a
// directory.
func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("local: resolve export root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("local: stat export root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local: export root %q is not a directory", abs)
	}

	fsys := &FS{
		root:            abs,
		cookieVerfs:     make(map[string][8]byte),
		createVerifiers: make(map[string][8]byte),
	}
	id := uuid.New()
	copy(fsys.writeVerf[:], id[:8])

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("directory change notification unavailable, cookie verifiers will only rotate on restart", "error", err)
	} else {
		fsys.watcher = watcher
		go fsys.watchLoop()
	}

	return fsys, nil
}

func (f *FS) Close() error {
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}

// watchLoop bumps a directory's cookieverf whenever fsnotify reports a
// structural change under it. New registers no path with the watcher, so
// no events arrive and a directory's verifier stays the same for the life
// of the process. Readdir reports a verifier mismatch as fsal.ErrInvalid
// (NFS3ERR_INVAL).
func (f *FS) watchLoop() {
	for {
		select {
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				f.bumpCookieVerf(filepath.Dir(ev.Name))
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("directory watch error", "error", err)
		}
	}
}

func (f *FS) bumpCookieVerf(absDir string) {
	rel, err := f.relPath(absDir)
	if err != nil {
		return
	}
	var verf [8]byte
	id := uuid.New()
	copy(verf[:], id[:8])
	f.mu.Lock()
	f.cookieVerfs[rel] = verf
	f.mu.Unlock()
}

// resolve turns an export-relative path into an absolute host path.
// Leading ".." elements are cleaned away against "/", so a path that
// tries to climb outside root resolves to a path under root.
func (f *FS) resolve(relPath string) (string, error) {
	clean := filepath.Clean("/" + relPath)
	abs := filepath.Join(f.root, clean)
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes export root", fsal.ErrInvalid)
	}
	return abs, nil
}

func (f *FS) relPath(absPath string) (string, error) {
	rel, err := filepath.Rel(f.root, absPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

func join(dirRelPath, name string) string {
	if dirRelPath == "" {
		return name
	}
	return dirRelPath + "/" + name
}

// mapErr converts a host OS error into an FSAL error category.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", fsal.ErrNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", fsal.ErrPermission, err)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w: %v", fsal.ErrExist, err)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT:
			return fmt.Errorf("%w: %v", fsal.ErrNotFound, err)
		case syscall.EACCES, syscall.EPERM:
			return fmt.Errorf("%w: %v", fsal.ErrPermission, err)
		case syscall.EEXIST:
			return fmt.Errorf("%w: %v", fsal.ErrExist, err)
		case syscall.EISDIR:
			return fmt.Errorf("%w: %v", fsal.ErrIsDir, err)
		case syscall.ENOTDIR:
			return fmt.Errorf("%w: %v", fsal.ErrNotDir, err)
		case syscall.EINVAL:
			return fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
		case syscall.ENOSPC:
			return fmt.Errorf("%w: %v", fsal.ErrNoSpace, err)
		case syscall.EROFS:
			return fmt.Errorf("%w: %v", fsal.ErrReadOnly, err)
		case syscall.ENOTEMPTY:
			return fmt.Errorf("%w: %v", fsal.ErrNotEmpty, err)
		case syscall.ENAMETOOLONG:
			return fmt.Errorf("%w: %v", fsal.ErrNameTooLong, err)
		case syscall.EFBIG:
			return fmt.Errorf("%w: %v", fsal.ErrTooBig, err)
		}
	}
	return err
}

func toNFSTime(t time.Time) nfs3.NFSTime {
	return nfs3.NFSTime{Seconds: uint32(t.Unix()), Nseconds: uint32(t.Nanosecond())}
}

// attrFromStat builds a fattr3 from a host lstat result. Symlinks are
// reported with their own size (the link target length), matching
// client expectations for READLINK-able objects.
func attrFromStat(info os.FileInfo) *nfs3.FileAttr {
	sys, _ := info.Sys().(*syscall.Stat_t)
	a := &nfs3.FileAttr{
		Mode:  uint32(info.Mode().Perm()),
		Size:  uint64(info.Size()),
		Mtime: toNFSTime(info.ModTime()),
	}
	switch {
	case info.Mode().IsRegular():
		a.Type = nfs3.TypeReg
	case info.IsDir():
		a.Type = nfs3.TypeDir
	case info.Mode()&os.ModeSymlink != 0:
		a.Type = nfs3.TypeLnk
	case info.Mode()&os.ModeDevice != 0 && info.Mode()&os.ModeCharDevice != 0:
		a.Type = nfs3.TypeChr
	case info.Mode()&os.ModeDevice != 0:
		a.Type = nfs3.TypeBlk
	case info.Mode()&os.ModeSocket != 0:
		a.Type = nfs3.TypeSock
	case info.Mode()&os.ModeNamedPipe != 0:
		a.Type = nfs3.TypeFifo
	}
	if sys != nil {
		a.Nlink = uint32(sys.Nlink)
		a.UID = sys.Uid
		a.GID = sys.Gid
		a.Used = uint64(sys.Blocks) * 512
		a.Fsid = uint64(sys.Dev)
		a.FileID = sys.Ino
		a.RdevMajor = uint32(unix.Major(uint64(sys.Rdev)))
		a.RdevMinor = uint32(unix.Minor(uint64(sys.Rdev)))
		a.Atime = nfs3.NFSTime{Seconds: uint32(sys.Atim.Sec), Nseconds: uint32(sys.Atim.Nsec)}
		a.Ctime = nfs3.NFSTime{Seconds: uint32(sys.Ctim.Sec), Nseconds: uint32(sys.Ctim.Nsec)}
	} else {
		a.Nlink = 1
		a.Atime = a.Mtime
		a.Ctime = a.Mtime
	}
	return a
}

func wccAttrFromStat(info os.FileInfo) *nfs3.WccAttr {
	a := attrFromStat(info)
	return &nfs3.WccAttr{Size: a.Size, Mtime: a.Mtime, Ctime: a.Ctime}
}

func (f *FS) lstat(absPath string) (os.FileInfo, error) {
	return os.Lstat(absPath)
}

func (f *FS) fileID(absPath string) (uint64, error) {
	info, err := f.lstat(absPath)
	if err != nil {
		return 0, mapErr(err)
	}
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("local: no inode information for %q", absPath)
	}
	return sys.Ino, nil
}

func (f *FS) GetAttr(ctx context.Context, relPath string) (*nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return nil, err
	}
	info, err := f.lstat(abs)
	if err != nil {
		return nil, mapErr(err)
	}
	return attrFromStat(info), nil
}

func (f *FS) SetAttr(ctx context.Context, relPath string, sattr *nfs3.SetAttr, guard *nfs3.SattrGuard) (*nfs3.WccAttr, *nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return nil, nil, err
	}
	before, err := f.lstat(abs)
	if err != nil {
		return nil, nil, mapErr(err)
	}
	wccBefore := wccAttrFromStat(before)

	if guard != nil && guard.Check {
		current := attrFromStat(before)
		if current.Ctime != guard.Ctime {
			return wccBefore, current, fmt.Errorf("%w: ctime guard mismatch", fsal.ErrInvalid)
		}
	}

	if sattr.Size != nil {
		if err := os.Truncate(abs, int64(*sattr.Size)); err != nil {
			return wccBefore, nil, mapErr(err)
		}
	}
	if sattr.Mode != nil {
		if err := os.Chmod(abs, os.FileMode(*sattr.Mode&0o7777)); err != nil {
			return wccBefore, nil, mapErr(err)
		}
	}
	if sattr.UID != nil || sattr.GID != nil {
		uid, gid := -1, -1
		if sattr.UID != nil {
			uid = int(*sattr.UID)
		}
		if sattr.GID != nil {
			gid = int(*sattr.GID)
		}
		if err := os.Chown(abs, uid, gid); err != nil {
			return wccBefore, nil, mapErr(err)
		}
	}
	if sattr.Atime != nil || sattr.Mtime != nil {
		atime, mtime := time.Now(), time.Now()
		if sattr.Atime != nil && sattr.Atime.How == nfs3Client {
			atime = time.Unix(int64(sattr.Atime.Time.Seconds), int64(sattr.Atime.Time.Nseconds))
		}
		if sattr.Mtime != nil && sattr.Mtime.How == nfs3Client {
			mtime = time.Unix(int64(sattr.Mtime.Time.Seconds), int64(sattr.Mtime.Time.Nseconds))
		}
		if err := os.Chtimes(abs, atime, mtime); err != nil {
			return wccBefore, nil, mapErr(err)
		}
	}

	after, err := f.lstat(abs)
	if err != nil {
		return wccBefore, nil, mapErr(err)
	}
	return wccBefore, attrFromStat(after), nil
}

// nfs3Client mirrors nfs3.SetToClientTime without importing it twice
// under a different name; kept local to avoid a stutter in SetAttr.
const nfs3Client = 2

func (f *FS) Lookup(ctx context.Context, dirPath, name string) (fsal.Object, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return fsal.Object{}, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	absDir, err := f.resolve(dirPath)
	if err != nil {
		return fsal.Object{}, nil, err
	}
	dirInfo, err := f.lstat(absDir)
	if err != nil {
		return fsal.Object{}, nil, mapErr(err)
	}
	if !dirInfo.IsDir() {
		return fsal.Object{}, nil, fsal.ErrNotDir
	}

	childRel := join(dirPath, name)
	absChild, err := f.resolve(childRel)
	if err != nil {
		return fsal.Object{}, nil, err
	}
	info, err := f.lstat(absChild)
	if err != nil {
		return fsal.Object{}, nil, mapErr(err)
	}
	sys, _ := info.Sys().(*syscall.Stat_t)
	var fileID uint64
	if sys != nil {
		fileID = sys.Ino
	}
	return fsal.Object{Path: childRel, FileID: fileID}, attrFromStat(info), nil
}

func (f *FS) Access(ctx context.Context, relPath string, uid, gid uint32, requested uint32) (uint32, *nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return 0, nil, err
	}
	info, err := f.lstat(abs)
	if err != nil {
		return 0, nil, mapErr(err)
	}
	attr := attrFromStat(info)

	mode := info.Mode().Perm()
	var bits os.FileMode
	switch {
	case uid == attr.UID:
		bits = (mode >> 6) & 0o7
	case gid == attr.GID:
		bits = (mode >> 3) & 0o7
	default:
		bits = mode & 0o7
	}

	var granted uint32
	if bits&0o4 != 0 {
		granted |= nfs3.Access3Read | nfs3.Access3Lookup
	}
	if bits&0o2 != 0 {
		granted |= nfs3.Access3Modify | nfs3.Access3Extend | nfs3.Access3Delete
	}
	if bits&0o1 != 0 {
		granted |= nfs3.Access3Execute
	}
	return granted & requested, attr, nil
}

func (f *FS) Readlink(ctx context.Context, relPath string) (string, *nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return "", nil, err
	}
	target, err := os.Readlink(abs)
	if err != nil {
		return "", nil, mapErr(err)
	}
	info, err := f.lstat(abs)
	if err != nil {
		return "", nil, mapErr(err)
	}
	return target, attrFromStat(info), nil
}

func (f *FS) Read(ctx context.Context, relPath string, offset uint64, count uint32) ([]byte, bool, *nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return nil, false, nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, false, nil, mapErr(err)
	}
	defer file.Close()

	buf := make([]byte, count)
	n, readErr := file.ReadAt(buf, int64(offset))
	eof := errors.Is(readErr, io.EOF)
	if readErr != nil && !eof {
		return nil, false, nil, mapErr(readErr)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, false, nil, mapErr(err)
	}
	attr := attrFromStat(info)
	if uint64(n)+offset >= attr.Size {
		eof = true
	}
	return buf[:n], eof, attr, nil
}

func (f *FS) Write(ctx context.Context, relPath string, offset uint64, data []byte, stable uint32) (uint32, uint32, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	before, err := f.lstat(abs)
	if err != nil {
		return 0, 0, nil, nil, mapErr(err)
	}
	wccBefore := wccAttrFromStat(before)

	if before.IsDir() {
		return 0, 0, wccBefore, attrFromStat(before), fsal.ErrIsDir
	}

	file, err := os.OpenFile(abs, os.O_WRONLY, 0)
	if err != nil {
		return 0, 0, wccBefore, nil, mapErr(err)
	}
	defer file.Close()

	n, err := file.WriteAt(data, int64(offset))
	if err != nil {
		return uint32(n), 0, wccBefore, nil, mapErr(err)
	}

	committed := stable
	if stable == nfs3.DataSync {
		if err := file.Sync(); err != nil {
			return uint32(n), 0, wccBefore, nil, mapErr(err)
		}
	} else if stable == nfs3.FileSync {
		if err := file.Sync(); err != nil {
			return uint32(n), 0, wccBefore, nil, mapErr(err)
		}
	}

	after, err := f.lstat(abs)
	if err != nil {
		return uint32(n), committed, wccBefore, nil, mapErr(err)
	}
	return uint32(n), committed, wccBefore, attrFromStat(after), nil
}

func (f *FS) Commit(ctx context.Context, relPath string, offset uint64, count uint32) (*nfs3.WccAttr, *nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return nil, nil, err
	}
	before, err := f.lstat(abs)
	if err != nil {
		return nil, nil, mapErr(err)
	}
	wccBefore := wccAttrFromStat(before)

	file, err := os.OpenFile(abs, os.O_WRONLY, 0)
	if err != nil {
		return wccBefore, nil, mapErr(err)
	}
	defer file.Close()
	if err := file.Sync(); err != nil {
		return wccBefore, nil, mapErr(err)
	}

	after, err := f.lstat(abs)
	if err != nil {
		return wccBefore, nil, mapErr(err)
	}
	return wccBefore, attrFromStat(after), nil
}

func (f *FS) dirWcc(dirPath string) (*nfs3.WccAttr, error) {
	abs, err := f.resolve(dirPath)
	if err != nil {
		return nil, err
	}
	info, err := f.lstat(abs)
	if err != nil {
		return nil, mapErr(err)
	}
	return wccAttrFromStat(info), nil
}

func (f *FS) dirAfter(dirPath string) *nfs3.FileAttr {
	abs, err := f.resolve(dirPath)
	if err != nil {
		return nil
	}
	info, err := f.lstat(abs)
	if err != nil {
		return nil
	}
	return attrFromStat(info)
}

func (f *FS) Create(ctx context.Context, dirPath, name string, mode fsal.CreateMode, sattr *nfs3.SetAttr, verf [8]byte) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return fsal.Object{}, nil, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	dirBefore, err := f.dirWcc(dirPath)
	if err != nil {
		return fsal.Object{}, nil, nil, nil, err
	}

	childRel := join(dirPath, name)
	abs, err := f.resolve(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}

	var perm os.FileMode = 0o644
	if sattr != nil && sattr.Mode != nil {
		perm = os.FileMode(*sattr.Mode & 0o7777)
	}

	switch mode {
	case fsal.CreateExclusive:
		f.mu.Lock()
		existingVerf, pending := f.createVerifiers[childRel]
		f.mu.Unlock()
		if pending && existingVerf == verf {
			// Redelivery of the same verifier: treat as a no-op success.
			obj, attr, statErr := f.statChild(childRel)
			if statErr == nil {
				return obj, attr, dirBefore, f.dirAfter(dirPath), nil
			}
		}
		file, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return fsal.Object{}, nil, dirBefore, f.dirAfter(dirPath), fsal.ErrExist
			}
			return fsal.Object{}, nil, dirBefore, nil, mapErr(err)
		}
		file.Close()
		f.mu.Lock()
		f.createVerifiers[childRel] = verf
		f.mu.Unlock()

	case fsal.CreateGuarded:
		file, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return fsal.Object{}, nil, dirBefore, f.dirAfter(dirPath), fsal.ErrExist
			}
			return fsal.Object{}, nil, dirBefore, nil, mapErr(err)
		}
		file.Close()

	default: // CreateUnchecked
		file, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, perm)
		if err != nil {
			return fsal.Object{}, nil, dirBefore, nil, mapErr(err)
		}
		file.Close()
	}

	obj, attr, err := f.statChild(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}
	return obj, attr, dirBefore, f.dirAfter(dirPath), nil
}

func (f *FS) statChild(relPath string) (fsal.Object, *nfs3.FileAttr, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return fsal.Object{}, nil, err
	}
	info, err := f.lstat(abs)
	if err != nil {
		return fsal.Object{}, nil, mapErr(err)
	}
	sys, _ := info.Sys().(*syscall.Stat_t)
	var fileID uint64
	if sys != nil {
		fileID = sys.Ino
	}
	return fsal.Object{Path: relPath, FileID: fileID}, attrFromStat(info), nil
}

func (f *FS) Mkdir(ctx context.Context, dirPath, name string, sattr *nfs3.SetAttr) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return fsal.Object{}, nil, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	dirBefore, err := f.dirWcc(dirPath)
	if err != nil {
		return fsal.Object{}, nil, nil, nil, err
	}
	childRel := join(dirPath, name)
	abs, err := f.resolve(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}
	var perm os.FileMode = 0o755
	if sattr != nil && sattr.Mode != nil {
		perm = os.FileMode(*sattr.Mode & 0o7777)
	}
	if err := os.Mkdir(abs, perm); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fsal.Object{}, nil, dirBefore, f.dirAfter(dirPath), fsal.ErrExist
		}
		return fsal.Object{}, nil, dirBefore, nil, mapErr(err)
	}
	obj, attr, err := f.statChild(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}
	return obj, attr, dirBefore, f.dirAfter(dirPath), nil
}

func (f *FS) Symlink(ctx context.Context, dirPath, name, target string, sattr *nfs3.SetAttr) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return fsal.Object{}, nil, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	dirBefore, err := f.dirWcc(dirPath)
	if err != nil {
		return fsal.Object{}, nil, nil, nil, err
	}
	childRel := join(dirPath, name)
	abs, err := f.resolve(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}
	if err := os.Symlink(target, abs); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fsal.Object{}, nil, dirBefore, f.dirAfter(dirPath), fsal.ErrExist
		}
		return fsal.Object{}, nil, dirBefore, nil, mapErr(err)
	}
	obj, attr, err := f.statChild(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}
	return obj, attr, dirBefore, f.dirAfter(dirPath), nil
}

func (f *FS) Mknod(ctx context.Context, dirPath, name string, ftype uint32, major, minor uint32, sattr *nfs3.SetAttr) (fsal.Object, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return fsal.Object{}, nil, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	dirBefore, err := f.dirWcc(dirPath)
	if err != nil {
		return fsal.Object{}, nil, nil, nil, err
	}
	childRel := join(dirPath, name)
	abs, err := f.resolve(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}

	var perm os.FileMode = 0o644
	if sattr != nil && sattr.Mode != nil {
		perm = os.FileMode(*sattr.Mode & 0o7777)
	}

	var mode uint32
	switch ftype {
	case nfs3.TypeChr:
		mode = unix.S_IFCHR | uint32(perm)
	case nfs3.TypeBlk:
		mode = unix.S_IFBLK | uint32(perm)
	case nfs3.TypeFifo:
		mode = unix.S_IFIFO | uint32(perm)
	case nfs3.TypeSock:
		mode = unix.S_IFSOCK | uint32(perm)
	default:
		return fsal.Object{}, nil, dirBefore, nil, fsal.ErrInvalid
	}
	dev := unix.Mkdev(major, minor)
	if err := unix.Mknod(abs, mode, int(dev)); err != nil {
		return fsal.Object{}, nil, dirBefore, nil, mapErr(err)
	}
	obj, attr, err := f.statChild(childRel)
	if err != nil {
		return fsal.Object{}, nil, dirBefore, nil, err
	}
	return obj, attr, dirBefore, f.dirAfter(dirPath), nil
}

func (f *FS) Remove(ctx context.Context, dirPath, name string) (uint64, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	dirBefore, err := f.dirWcc(dirPath)
	if err != nil {
		return 0, nil, nil, err
	}
	childRel := join(dirPath, name)
	abs, err := f.resolve(childRel)
	if err != nil {
		return 0, dirBefore, nil, err
	}
	fileID, idErr := f.fileID(abs)
	info, statErr := f.lstat(abs)
	if statErr == nil && info.IsDir() {
		return 0, dirBefore, nil, fsal.ErrIsDir
	}
	if err := os.Remove(abs); err != nil {
		return 0, dirBefore, nil, mapErr(err)
	}
	f.mu.Lock()
	delete(f.createVerifiers, childRel)
	f.mu.Unlock()
	if idErr != nil {
		fileID = 0
	}
	return fileID, dirBefore, f.dirAfter(dirPath), nil
}

func (f *FS) Rmdir(ctx context.Context, dirPath, name string) (uint64, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	dirBefore, err := f.dirWcc(dirPath)
	if err != nil {
		return 0, nil, nil, err
	}
	childRel := join(dirPath, name)
	abs, err := f.resolve(childRel)
	if err != nil {
		return 0, dirBefore, nil, err
	}
	fileID, idErr := f.fileID(abs)
	if err := os.Remove(abs); err != nil {
		return 0, dirBefore, nil, mapErr(err)
	}
	if idErr != nil {
		fileID = 0
	}
	return fileID, dirBefore, f.dirAfter(dirPath), nil
}

func (f *FS) Rename(ctx context.Context, fromDir, fromName, toDir, toName string) (uint64, *nfs3.WccAttr, *nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(fromName); err != nil {
		return 0, nil, nil, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	if err := nfs3.ValidateName(toName); err != nil {
		return 0, nil, nil, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}

	fromWccBefore, err := f.dirWcc(fromDir)
	if err != nil {
		return 0, nil, nil, nil, nil, err
	}
	var toWccBefore *nfs3.WccAttr
	if toDir == fromDir {
		toWccBefore = fromWccBefore
	} else {
		toWccBefore, err = f.dirWcc(toDir)
		if err != nil {
			return 0, fromWccBefore, nil, nil, nil, err
		}
	}

	fromRel := join(fromDir, fromName)
	toRel := join(toDir, toName)
	absFrom, err := f.resolve(fromRel)
	if err != nil {
		return 0, fromWccBefore, nil, toWccBefore, nil, err
	}
	absTo, err := f.resolve(toRel)
	if err != nil {
		return 0, fromWccBefore, nil, toWccBefore, nil, err
	}

	fileID, _ := f.fileID(absFrom)

	if err := os.Rename(absFrom, absTo); err != nil {
		return 0, fromWccBefore, nil, toWccBefore, nil, mapErr(err)
	}

	fromAfter := f.dirAfter(fromDir)
	var toAfter *nfs3.FileAttr
	if toDir == fromDir {
		toAfter = fromAfter
	} else {
		toAfter = f.dirAfter(toDir)
	}
	return fileID, fromWccBefore, fromAfter, toWccBefore, toAfter, nil
}

func (f *FS) Link(ctx context.Context, relPath, dirPath, name string) (*nfs3.FileAttr, *nfs3.WccAttr, *nfs3.FileAttr, error) {
	if err := nfs3.ValidateName(name); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", fsal.ErrInvalid, err)
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return nil, nil, nil, err
	}
	info, err := f.lstat(abs)
	if err != nil {
		return nil, nil, nil, mapErr(err)
	}
	if info.IsDir() {
		return nil, nil, nil, fsal.ErrIsDir
	}

	dirBefore, err := f.dirWcc(dirPath)
	if err != nil {
		return nil, nil, nil, err
	}
	newRel := join(dirPath, name)
	absNew, err := f.resolve(newRel)
	if err != nil {
		return nil, dirBefore, nil, err
	}
	if err := os.Link(abs, absNew); err != nil {
		return nil, dirBefore, nil, mapErr(err)
	}

	after, err := f.lstat(abs)
	if err != nil {
		return nil, dirBefore, nil, mapErr(err)
	}
	return attrFromStat(after), dirBefore, f.dirAfter(dirPath), nil
}

func (f *FS) Readdir(ctx context.Context, dirPath string, cookie uint64, cookieVerf [8]byte, maxBytes uint32) ([]nfs3.DirEntry, [8]byte, bool, error) {
	abs, err := f.resolve(dirPath)
	if err != nil {
		return nil, cookieVerf, false, err
	}
	dir, err := os.Open(abs)
	if err != nil {
		return nil, cookieVerf, false, mapErr(err)
	}
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, cookieVerf, false, mapErr(err)
	}
	names = append([]string{".", ".."}, names...)

	f.mu.Lock()
	current, tracked := f.cookieVerfs[dirPath]
	if !tracked {
		id := uuid.New()
		copy(current[:], id[:8])
		f.cookieVerfs[dirPath] = current
	}
	f.mu.Unlock()

	if cookie != 0 && cookieVerf != current {
		return nil, current, false, fmt.Errorf("%w: cookie verifier mismatch", fsal.ErrInvalid)
	}

	var entries []nfs3.DirEntry
	var used uint32
	var idx uint64
	for _, name := range names {
		idx++
		if idx <= cookie {
			continue
		}
		childRel := dirPath
		switch name {
		case ".":
			childRel = dirPath
		case "..":
			childRel = filepath.ToSlash(filepath.Dir(dirPath))
			if childRel == "." {
				childRel = ""
			}
		default:
			childRel = join(dirPath, name)
		}
		absChild, rerr := f.resolve(childRel)
		if rerr != nil {
			continue
		}
		info, serr := f.lstat(absChild)
		if serr != nil {
			continue
		}
		sys, _ := info.Sys().(*syscall.Stat_t)
		var fileID uint64
		if sys != nil {
			fileID = sys.Ino
		}

		entrySize := uint32(len(name)) + 24
		if used+entrySize > maxBytes && len(entries) > 0 {
			return entries, current, false, nil
		}
		used += entrySize

		entries = append(entries, nfs3.DirEntry{
			FileID: fileID,
			Name:   name,
			Cookie: idx,
		})
	}

	return entries, current, true, nil
}

func (f *FS) Statfs(ctx context.Context, relPath string) (*nfs3.FSStat, error) {
	abs, err := f.resolve(relPath)
	if err != nil {
		return nil, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(abs, &st); err != nil {
		return nil, mapErr(err)
	}
	return &nfs3.FSStat{
		TBytes: st.Blocks * uint64(st.Bsize),
		FBytes: st.Bfree * uint64(st.Bsize),
		ABytes: st.Bavail * uint64(st.Bsize),
		TFiles: st.Files,
		FFiles: st.Ffree,
		AFiles: st.Ffree,
	}, nil
}

func (f *FS) FSInfo(ctx context.Context, relPath string) (*nfs3.FSInfo, error) {
	const transferSize = 1 << 20
	return &nfs3.FSInfo{
		RtMax:       transferSize,
		RtPref:      transferSize,
		RtMult:      4096,
		WtMax:       transferSize,
		WtPref:      transferSize,
		WtMult:      4096,
		DtPref:      transferSize,
		MaxFileSize: 1 << 44,
		TimeDelta:   nfs3.NFSTime{Seconds: 1},
		Properties:  nfs3.FSF3Link | nfs3.FSF3Symlink | nfs3.FSF3Homogen | nfs3.FSF3CanSetTime,
	}, nil
}

func (f *FS) PathConf(ctx context.Context, relPath string) (*nfs3.PathConf, error) {
	return &nfs3.PathConf{
		LinkMax:         32000,
		NameMax:         255,
		NoTrunc:         true,
		ChownRestricted: true,
		CaseInsensitive: false,
		CasePreserving:  true,
	}, nil
}

func (f *FS) WriteVerifier() [8]byte {
	return f.writeVerf
}

var _ fsal.FSAL = (*FS)(nil)

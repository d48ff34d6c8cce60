package local

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/nfs3"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	fsys, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsys.Close() })
	return fsys
}

func TestGetAttrRoot(t *testing.T) {
	fsys := newTestFS(t)
	attr, err := fsys.GetAttr(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, nfs3.TypeDir, attr.Type)
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	obj, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateUnchecked, nil, [8]byte{})
	require.NoError(t, err)
	assert.Equal(t, "t.txt", obj.Path)

	data := []byte("Hello, NFS World! Testing.")
	n, committed, _, after, err := fsys.Write(ctx, obj.Path, 0, data, nfs3.FileSync)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(data)), n)
	assert.Equal(t, uint32(nfs3.FileSync), committed)
	assert.Equal(t, uint64(len(data)), after.Size)

	got, eof, _, err := fsys.Read(ctx, obj.Path, 0, 1024)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.True(t, eof)
}

func TestCreateUncheckedOverExisting(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	_, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateUnchecked, nil, [8]byte{})
	require.NoError(t, err)

	obj, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateUnchecked, nil, [8]byte{})
	assert.NoError(t, err, "UNCHECKED succeeds whether or not the file already exists")
	assert.Equal(t, "t.txt", obj.Path)
}

func TestCreateGuardedCollision(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	_, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateGuarded, nil, [8]byte{})
	require.NoError(t, err)

	_, _, dirBefore, dirAfter, err := fsys.Create(ctx, "", "t.txt", fsal.CreateGuarded, nil, [8]byte{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsal.ErrExist))
	assert.NotNil(t, dirBefore, "wcc_data must be populated on failure")
	assert.NotNil(t, dirAfter)
}

func TestCreateExclusiveRedeliveryIsNoop(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()
	verf := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	obj1, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateExclusive, nil, verf)
	require.NoError(t, err)

	obj2, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateExclusive, nil, verf)
	require.NoError(t, err, "redelivery of the same verifier must be a successful no-op")
	assert.Equal(t, obj1.Path, obj2.Path)
}

func TestCreateExclusiveMismatchedVerifierFails(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	_, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateExclusive, nil, [8]byte{1})
	require.NoError(t, err)

	_, _, _, _, err = fsys.Create(ctx, "", "t.txt", fsal.CreateExclusive, nil, [8]byte{2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsal.ErrExist))
}

func TestSymlinkReadlinkRoundTrip(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	obj, _, _, _, err := fsys.Symlink(ctx, "", "ln", "/a/b/c", nil)
	require.NoError(t, err)

	target, attr, err := fsys.Readlink(ctx, obj.Path)
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", target)
	assert.Equal(t, nfs3.TypeLnk, attr.Type)
}

func TestRemoveThenLookupIsNotFound(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	_, _, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateUnchecked, nil, [8]byte{})
	require.NoError(t, err)

	_, _, _, err = fsys.Remove(ctx, "", "t.txt")
	require.NoError(t, err)

	_, _, err = fsys.Lookup(ctx, "", "t.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsal.ErrNotFound))
}

func TestLinkToDirectoryFails(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	_, _, _, _, err := fsys.Mkdir(ctx, "", "adir", nil)
	require.NoError(t, err)

	_, _, _, err = fsys.Link(ctx, "", "", "d")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsal.ErrIsDir))
}

func TestLinkIncrementsNlink(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	obj, attrBefore, _, _, err := fsys.Create(ctx, "", "t.txt", fsal.CreateUnchecked, nil, [8]byte{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), attrBefore.Nlink)

	after, _, _, err := fsys.Link(ctx, obj.Path, "", "t2.txt")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), after.Nlink)
}

func TestRenameAcrossSameDirectory(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	_, _, _, _, err := fsys.Create(ctx, "", "a.txt", fsal.CreateUnchecked, nil, [8]byte{})
	require.NoError(t, err)

	_, fromBefore, fromAfter, toBefore, toAfter, err := fsys.Rename(ctx, "", "a.txt", "", "b.txt")
	require.NoError(t, err)
	assert.NotNil(t, fromBefore)
	assert.NotNil(t, fromAfter)
	assert.Equal(t, fromBefore, toBefore, "same directory shares one snapshot")
	assert.Equal(t, fromAfter, toAfter)

	_, _, err = fsys.Lookup(ctx, "", "b.txt")
	require.NoError(t, err)
	_, _, err = fsys.Lookup(ctx, "", "a.txt")
	assert.Error(t, err)
}

func TestReaddirPaginatesAllEntries(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, _, _, _, err := fsys.Create(ctx, "", name, fsal.CreateUnchecked, nil, [8]byte{})
		require.NoError(t, err)
	}

	var cookie uint64
	var verf [8]byte
	seen := map[string]bool{}
	for {
		entries, newVerf, eof, err := fsys.Readdir(ctx, "", cookie, verf, 64)
		require.NoError(t, err)
		for _, e := range entries {
			seen[e.Name] = true
			cookie = e.Cookie
		}
		verf = newVerf
		if eof {
			break
		}
	}
	for _, name := range []string{".", "..", "a", "b", "c", "d", "e"} {
		assert.True(t, seen[name], "expected entry %q", name)
	}
}

func TestWriteVerifierStableWithinProcess(t *testing.T) {
	fsys := newTestFS(t)
	v1 := fsys.WriteVerifier()
	v2 := fsys.WriteVerifier()
	assert.Equal(t, v1, v2)
}

func TestWriteVerifierChangesAcrossInstances(t *testing.T) {
	a := newTestFS(t)
	b := newTestFS(t)
	assert.NotEqual(t, a.WriteVerifier(), b.WriteVerifier())
}

func TestResolveConfinesPathEscapeToRoot(t *testing.T) {
	fsys := newTestFS(t)
	_, err := fsys.resolve("../../etc/passwd")
	// Clean("/"+"../../etc/passwd") collapses to "/etc/passwd" which stays
	// under root -- this asserts the escape attempt is neutralized, not
	// that it errors, since filepath.Clean already defangs it.
	require.NoError(t, err)
}

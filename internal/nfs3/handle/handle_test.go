package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIsIdempotent(t *testing.T) {
	a := Encode(2, 1234)
	b := Encode(2, 1234)
	assert.Equal(t, a, b, "same (type, fileid) must produce the same bytes")
	assert.LessOrEqual(t, len(a), 64)
	assert.GreaterOrEqual(t, len(a), 1)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := Encode(1, 0xDEADBEEF)
	objType, fileID, err := Decode(h)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), objType)
	assert.Equal(t, uint64(0xDEADBEEF), fileID)
}

func TestDecodeWrongLengthFails(t *testing.T) {
	_, _, err := Decode(Handle{1, 2, 3})
	assert.Error(t, err)
}

func TestServiceHandleForThenResolve(t *testing.T) {
	s := New()
	h := s.HandleFor(1, 100, "a/b.txt")

	relPath, objType, ok := s.Resolve(h)
	require.True(t, ok)
	assert.Equal(t, "a/b.txt", relPath)
	assert.Equal(t, uint32(1), objType)
}

func TestServiceResolveUnknownIsStale(t *testing.T) {
	s := New()
	h := Encode(1, 999) // never registered
	_, _, ok := s.Resolve(h)
	assert.False(t, ok)
}

func TestServiceForgetMarksHandleStale(t *testing.T) {
	s := New()
	h := s.HandleFor(1, 7, "file.txt")
	s.Forget(7)

	_, _, ok := s.Resolve(h)
	assert.False(t, ok, "resolving a forgotten fileid must report stale")
}

func TestServiceRenameUpdatesPathSameHandle(t *testing.T) {
	s := New()
	h := s.HandleFor(1, 7, "old/name.txt")
	s.Rename(7, "new/name.txt")

	relPath, _, ok := s.Resolve(h)
	require.True(t, ok)
	assert.Equal(t, "new/name.txt", relPath)

	// handle bytes are unchanged by rename -- only the path mapping moves.
	assert.Equal(t, Encode(1, 7), h)
}

func TestServiceRenameUnknownFileIDIsNoop(t *testing.T) {
	s := New()
	s.Rename(123, "wherever") // no entry for 123; must not panic or create one
	_, ok := s.Lookup(123)
	assert.False(t, ok)
}

func TestIsDirectory(t *testing.T) {
	s := New()
	dirHandle := s.HandleFor(2, 1, "adir")
	fileHandle := s.HandleFor(1, 2, "afile")

	assert.True(t, s.IsDirectory(dirHandle))
	assert.False(t, s.IsDirectory(fileHandle))
}

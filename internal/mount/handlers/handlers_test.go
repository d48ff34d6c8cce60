package handlers

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-nfsd/exportd/internal/mount"
	"github.com/go-nfsd/exportd/internal/xdr"
)

func testCtx(addr string) *Context {
	return &Context{Context: context.Background(), ClientAddr: addr}
}

func encodeDirpath(t *testing.T, path string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteString(buf, path))
	return buf.Bytes()
}

func TestMntAcceptsConfiguredExport(t *testing.T) {
	root := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	h := New("/export", root, nil)

	reply, err := h.Mnt(testCtx("10.0.0.1:700"), encodeDirpath(t, "/export"))
	require.NoError(t, err)

	d := xdr.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, mount.OK, status)

	fh, err := d.Opaque()
	require.NoError(t, err)
	assert.Equal(t, root, fh)
}

func TestMntRejectsUnknownPath(t *testing.T) {
	h := New("/export", []byte{1}, nil)

	reply, err := h.Mnt(testCtx("10.0.0.1:700"), encodeDirpath(t, "/other"))
	require.NoError(t, err)

	d := xdr.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, mount.ErrNoEnt, status)
}

func TestMntNormalizesTrailingSlash(t *testing.T) {
	h := New("/export/", []byte{9}, nil)

	reply, err := h.Mnt(testCtx("10.0.0.1:700"), encodeDirpath(t, "/export"))
	require.NoError(t, err)

	d := xdr.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, mount.OK, status)
}

func TestDumpListsActiveMounts(t *testing.T) {
	h := New("/export", []byte{1}, nil)
	_, err := h.Mnt(testCtx("10.0.0.1:700"), encodeDirpath(t, "/export"))
	require.NoError(t, err)
	_, err = h.Mnt(testCtx("10.0.0.2:700"), encodeDirpath(t, "/export"))
	require.NoError(t, err)

	reply, err := h.Dump(testCtx("10.0.0.1:700"), nil)
	require.NoError(t, err)

	d := xdr.NewDecoder(reply)
	var hosts []string
	for {
		present, err := d.Bool()
		require.NoError(t, err)
		if !present {
			break
		}
		host, err := d.String()
		require.NoError(t, err)
		_, err = d.String() // path
		require.NoError(t, err)
		hosts = append(hosts, host)
	}
	assert.ElementsMatch(t, []string{"10.0.0.1", "10.0.0.2"}, hosts)
}

func TestUmntRemovesEntry(t *testing.T) {
	h := New("/export", []byte{1}, nil)
	_, err := h.Mnt(testCtx("10.0.0.1:700"), encodeDirpath(t, "/export"))
	require.NoError(t, err)

	_, err = h.Umnt(testCtx("10.0.0.1:700"), encodeDirpath(t, "/export"))
	require.NoError(t, err)

	reply, err := h.Dump(testCtx("10.0.0.1:700"), nil)
	require.NoError(t, err)
	d := xdr.NewDecoder(reply)
	present, err := d.Bool()
	require.NoError(t, err)
	assert.False(t, present, "no mounts should remain after UMNT")
}

func TestExportListsConfiguredGroups(t *testing.T) {
	h := New("/export", []byte{1}, []string{"trusted", "admins"})

	reply, err := h.Export(testCtx("10.0.0.1:700"), nil)
	require.NoError(t, err)

	d := xdr.NewDecoder(reply)
	present, err := d.Bool()
	require.NoError(t, err)
	require.True(t, present)

	path, err := d.String()
	require.NoError(t, err)
	assert.Equal(t, "/export", path)

	var groups []string
	for {
		present, err := d.Bool()
		require.NoError(t, err)
		if !present {
			break
		}
		g, err := d.String()
		require.NoError(t, err)
		groups = append(groups, g)
	}
	assert.Equal(t, []string{"trusted", "admins"}, groups)

	moreEntries, err := d.Bool()
	require.NoError(t, err)
	assert.False(t, moreEntries)
}

func TestNullAlwaysSucceeds(t *testing.T) {
	h := New("/export", []byte{1}, nil)
	reply, err := h.Null(testCtx("x"), nil)
	require.NoError(t, err)
	assert.Nil(t, reply)
}

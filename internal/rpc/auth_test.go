package rpc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-nfsd/exportd/internal/xdr"
)

func validUnixAuth() *UnixAuth {
	return &UnixAuth{
		Stamp:       uint32(time.Now().Unix()),
		MachineName: "testhost",
		UID:         1000,
		GID:         1000,
		GIDs:        []uint32{4, 24, 27, 30},
	}
}

func encodeUnixAuth(t *testing.T, auth *UnixAuth) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(buf, auth.Stamp))
	require.NoError(t, xdr.WriteString(buf, auth.MachineName))
	require.NoError(t, xdr.WriteUint32(buf, auth.UID))
	require.NoError(t, xdr.WriteUint32(buf, auth.GID))
	require.NoError(t, xdr.WriteUint32(buf, uint32(len(auth.GIDs))))
	for _, gid := range auth.GIDs {
		require.NoError(t, xdr.WriteUint32(buf, gid))
	}
	return buf.Bytes()
}

func TestParseUnixAuth(t *testing.T) {
	t.Run("parses valid credentials", func(t *testing.T) {
		original := validUnixAuth()
		body := encodeUnixAuth(t, original)

		parsed, err := ParseUnixAuth(body)
		require.NoError(t, err)
		assert.Equal(t, original.Stamp, parsed.Stamp)
		assert.Equal(t, original.MachineName, parsed.MachineName)
		assert.Equal(t, original.UID, parsed.UID)
		assert.Equal(t, original.GID, parsed.GID)
		assert.Equal(t, original.GIDs, parsed.GIDs)
	})

	t.Run("accepts root credentials", func(t *testing.T) {
		auth := &UnixAuth{MachineName: "host", UID: 0, GID: 0}
		parsed, err := ParseUnixAuth(encodeUnixAuth(t, auth))
		require.NoError(t, err)
		assert.Zero(t, parsed.UID)
		assert.Zero(t, parsed.GID)
	})

	t.Run("accepts sixteen gids", func(t *testing.T) {
		gids := make([]uint32, 16)
		for i := range gids {
			gids[i] = uint32(i)
		}
		auth := &UnixAuth{MachineName: "host", GIDs: gids}
		_, err := ParseUnixAuth(encodeUnixAuth(t, auth))
		require.NoError(t, err)
	})

	t.Run("rejects too many gids", func(t *testing.T) {
		gids := make([]uint32, 17)
		auth := &UnixAuth{MachineName: "host", GIDs: gids}
		_, err := ParseUnixAuth(encodeUnixAuth(t, auth))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many gids")
	})

	t.Run("rejects machine name too long", func(t *testing.T) {
		auth := &UnixAuth{MachineName: string(make([]byte, 300))}
		_, err := ParseUnixAuth(encodeUnixAuth(t, auth))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "machine name too long")
	})

	t.Run("rejects empty body", func(t *testing.T) {
		_, err := ParseUnixAuth(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})
}

func TestResolveCredentials(t *testing.T) {
	t.Run("AUTH_NONE", func(t *testing.T) {
		creds, ok := ResolveCredentials(OpaqueAuth{Flavor: AuthFlavorNone})
		require.True(t, ok)
		assert.Equal(t, AuthFlavorNone, creds.Flavor)
	})

	t.Run("AUTH_SYS", func(t *testing.T) {
		body := encodeUnixAuth(t, &UnixAuth{MachineName: "h", UID: 42, GID: 7})
		creds, ok := ResolveCredentials(OpaqueAuth{Flavor: AuthFlavorSys, Body: body})
		require.True(t, ok)
		assert.Equal(t, uint32(42), creds.UID)
		assert.Equal(t, uint32(7), creds.GID)
	})

	t.Run("unsupported flavor rejected", func(t *testing.T) {
		_, ok := ResolveCredentials(OpaqueAuth{Flavor: AuthFlavorGSS})
		assert.False(t, ok)
	})
}

package xdr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderSequentialReads(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteUint32(buf, 7))
	require.NoError(t, WriteUint64(buf, 99))
	require.NoError(t, WriteBool(buf, true))
	require.NoError(t, WriteOpaque(buf, []byte("abc")))

	d := NewDecoder(buf.Bytes())

	u32, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), u32)

	u64, err := d.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(99), u64)

	b, err := d.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	op, err := d.Opaque()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), op)

	assert.Equal(t, 0, d.Remaining())
}

func TestDecoderFixedOpaque(t *testing.T) {
	buf := new(bytes.Buffer)
	verf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, WriteFixedOpaque(buf, verf))

	d := NewDecoder(buf.Bytes())
	got, err := d.FixedOpaque(8)
	require.NoError(t, err)
	assert.Equal(t, verf, got)
}

func TestDecodeOpaqueOversizedLengthFails(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteUint32(buf, maxOpaqueLength+1))
	_, err := DecodeOpaque(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestDecodeOpaqueTruncatedFails(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteUint32(buf, 10))
	buf.Write([]byte("short"))
	_, err := DecodeOpaque(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err, "truncated payload must be a framing error")
}

func TestDecodeUint32TruncatedFails(t *testing.T) {
	_, err := DecodeUint32(bytes.NewReader([]byte{0, 0}))
	assert.Error(t, err)
}

func TestPaddingBytesIgnoredButConsumed(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteOpaque(buf, []byte{0xFF})) // 1 byte + 3 pad
	require.NoError(t, WriteUint32(buf, 0xAABBCCDD))    // sentinel after pad

	d := NewDecoder(buf.Bytes())
	got, err := d.Opaque()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, got)

	sentinel, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xAABBCCDD), sentinel)
}

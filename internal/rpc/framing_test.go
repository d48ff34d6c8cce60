package rpc

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentHeaderRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteFragmentHeader(buf, 42))

	hdr, err := ReadFragmentHeader(buf)
	require.NoError(t, err)
	assert.True(t, hdr.IsLast, "WriteFragmentHeader always sets the last-fragment bit")
	assert.Equal(t, uint32(42), hdr.Length)
}

func TestReadFragmentHeaderParsesLastBitAndLength(t *testing.T) {
	// high bit clear (not last), length 0x12345
	raw := []byte{0x00, 0x01, 0x23, 0x45}
	hdr, err := ReadFragmentHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.False(t, hdr.IsLast)
	assert.Equal(t, uint32(0x012345), hdr.Length)
}

func TestValidateFragmentSizeRejectsOversized(t *testing.T) {
	assert.NoError(t, ValidateFragmentSize(MaxFragmentSize, "1.2.3.4:111"))
	assert.Error(t, ValidateFragmentSize(MaxFragmentSize+1, "1.2.3.4:111"))
}

func TestReadRecordSingleFragment(t *testing.T) {
	buf := new(bytes.Buffer)
	payload := []byte("hello world")
	require.NoError(t, WriteRecord(buf, payload))

	record, done, err := ReadRecord(buf, "1.2.3.4:111")
	require.NoError(t, err)
	defer done()
	assert.Equal(t, payload, record)
}

func TestReadRecordMultiFragment(t *testing.T) {
	buf := new(bytes.Buffer)
	part1 := []byte("hello ")
	part2 := []byte("world")

	require.NoError(t, WriteFragmentHeader(nonLastWriter{buf}, uint32(len(part1))))
	buf.Write(part1)
	require.NoError(t, WriteFragmentHeader(buf, uint32(len(part2))))
	buf.Write(part2)

	record, done, err := ReadRecord(buf, "1.2.3.4:111")
	require.NoError(t, err)
	defer done()
	assert.Equal(t, []byte("hello world"), record)
}

func TestWriteRecordDeclaredLengthMatchesPayload(t *testing.T) {
	buf := new(bytes.Buffer)
	payload := []byte("exactly this many bytes")
	require.NoError(t, WriteRecord(buf, payload))

	hdr, err := ReadFragmentHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), hdr.Length)
	assert.Equal(t, len(payload), buf.Len())
}

func TestReadRecordEOFPropagatesUnwrapped(t *testing.T) {
	_, _, err := ReadRecord(bytes.NewReader(nil), "1.2.3.4:111")
	assert.ErrorIs(t, err, io.EOF)
}

// nonLastWriter writes a fragment header with the last-fragment bit
// cleared, for constructing a synthetic multi-fragment record in tests.
type nonLastWriter struct {
	w io.Writer
}

func (n nonLastWriter) Write(p []byte) (int, error) {
	// p is the 4-byte header WriteFragmentHeader just built with the last
	// bit set; clear it before forwarding.
	if len(p) == 4 {
		cleared := make([]byte, 4)
		copy(cleared, p)
		cleared[0] &^= 0x80
		return n.w.Write(cleared)
	}
	return n.w.Write(p)
}

package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// maxOpaqueLength bounds a single opaque/string field during decode. NFSv3
// payloads (file data, directory entries) are capped well under this by
// the caller's own size checks; this is a blunt guard against a hostile
// or malformed length prefix driving an oversized allocation.
const maxOpaqueLength = 4 * 1024 * 1024

// Decoder is a sequential cursor over a decoded RPC argument payload.
// It wraps the free-standing Decode* functions so procedure argument
// decoders can read fields in order without threading an io.Reader
// through every call.
type Decoder struct {
	r *bytes.Reader
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

func (d *Decoder) Uint32() (uint32, error) { return DecodeUint32(d.r) }
func (d *Decoder) Uint64() (uint64, error) { return DecodeUint64(d.r) }
func (d *Decoder) Int32() (int32, error)   { return DecodeInt32(d.r) }
func (d *Decoder) Bool() (bool, error)     { return DecodeBool(d.r) }
func (d *Decoder) Opaque() ([]byte, error) { return DecodeOpaque(d.r) }
func (d *Decoder) String() (string, error) { return DecodeString(d.r) }

// FixedOpaque reads n bytes with no length prefix, followed by padding,
// per RFC 4506 §4.8. Used for fixed 8-byte verifiers.
func (d *Decoder) FixedOpaque(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("xdr: read fixed opaque: %w", err)
	}
	if err := skipPadding(d.r, uint32(n)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Remaining returns the number of bytes not yet consumed.
func (d *Decoder) Remaining() int { return d.r.Len() }

func DecodeOpaque(reader io.Reader) ([]byte, error) {
	length, err := DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("xdr: read opaque length: %w", err)
	}
	if length > maxOpaqueLength {
		return nil, fmt.Errorf("xdr: opaque length %d exceeds maximum %d", length, maxOpaqueLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("xdr: read opaque data: %w", err)
	}

	if err := skipPadding(reader, length); err != nil {
		return nil, err
	}
	return data, nil
}

// skipPadding discards the zero-padding bytes following a variable-length
// field, using a stack buffer since padding is never more than 3 bytes.
func skipPadding(reader io.Reader, dataLen uint32) error {
	if pad := paddingFor(dataLen); pad > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(reader, padBuf[:pad]); err != nil {
			return fmt.Errorf("xdr: skip padding: %w", err)
		}
	}
	return nil
}

// DecodeString decodes an XDR string. The protocol permits arbitrary
// 8-bit clean content; callers that need filename semantics (reject NUL
// and '/') validate separately rather than here.
func DecodeString(reader io.Reader) (string, error) {
	data, err := DecodeOpaque(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func DecodeUint32(reader io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("xdr: read uint32: %w", err)
	}
	return v, nil
}

func DecodeUint64(reader io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("xdr: read uint64: %w", err)
	}
	return v, nil
}

func DecodeInt32(reader io.Reader) (int32, error) {
	var v int32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("xdr: read int32: %w", err)
	}
	return v, nil
}

func DecodeBool(reader io.Reader) (bool, error) {
	v, err := DecodeUint32(reader)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Package xdr implements the External Data Representation primitives
// (RFC 4506) used to encode and decode NFSv3 and MOUNT v3 procedure
// arguments and results.
package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WriteOpaque encodes variable-length opaque data: a 4-byte length
// followed by the bytes themselves followed by zero-padding up to the
// next 4-byte boundary (RFC 4506 §4.9).
func WriteOpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := WriteUint32(buf, length); err != nil {
		return fmt.Errorf("xdr: write opaque length: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("xdr: write opaque data: %w", err)
	}
	return WritePadding(buf, length)
}

// WriteString encodes a string using the same length-prefixed layout as
// opaque data (RFC 4506 §4.11). The protocol treats strings as 8-bit
// clean byte sequences, not necessarily UTF-8.
func WriteString(buf *bytes.Buffer, s string) error {
	return WriteOpaque(buf, []byte(s))
}

// WritePadding emits the zero-padding bytes required to round dataLen up
// to the next 4-byte boundary. Writers must always emit exactly zero
// bytes here; readers must skip them without inspecting their value.
func WritePadding(buf *bytes.Buffer, dataLen uint32) error {
	if pad := paddingFor(dataLen); pad > 0 {
		var zero [4]byte
		if _, err := buf.Write(zero[:pad]); err != nil {
			return fmt.Errorf("xdr: write padding: %w", err)
		}
	}
	return nil
}

func paddingFor(dataLen uint32) uint32 {
	return (4 - (dataLen % 4)) % 4
}

func WriteUint32(buf *bytes.Buffer, v uint32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

func WriteUint64(buf *bytes.Buffer, v uint64) error {
	return binary.Write(buf, binary.BigEndian, v)
}

func WriteInt32(buf *bytes.Buffer, v int32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

func WriteInt64(buf *bytes.Buffer, v int64) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteBool encodes a boolean as a 4-byte discriminator: 0 or 1
// (RFC 4506 §4.4).
func WriteBool(buf *bytes.Buffer, v bool) error {
	if v {
		return WriteUint32(buf, 1)
	}
	return WriteUint32(buf, 0)
}

// WriteFixedOpaque encodes fixed-length opaque data: no length prefix,
// just the bytes and their padding (RFC 4506 §4.8). Used for writeverf3,
// cookieverf3, and similar 8-byte cookies.
func WriteFixedOpaque(buf *bytes.Buffer, data []byte) error {
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("xdr: write fixed opaque: %w", err)
	}
	return WritePadding(buf, uint32(len(data)))
}

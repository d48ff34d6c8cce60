// Package rpc implements the ONC-RPC v2 (RFC 5531) call/reply envelope
// and the stream record-marking layer it rides on.
package rpc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-nfsd/exportd/internal/bytesize"
	"github.com/go-nfsd/exportd/internal/logger"
	"github.com/go-nfsd/exportd/pkg/bufpool"
)

// MaxFragmentSize bounds a single record-marking fragment. It must exceed
// the largest advertised WRITE/READ transfer size (see fsinfo rtmax/wtmax)
// by enough headroom to cover the RPC call envelope and NFS argument
// overhead around the payload.
const MaxFragmentSize = (1 << 20) + (1 << 18) // 1 MiB + 256 KiB headroom

// FragmentHeader is the parsed 4-byte record-marking header that precedes
// every fragment on the wire: high bit marks the last fragment of a
// record, the low 31 bits give the fragment's payload length.
type FragmentHeader struct {
	IsLast bool
	Length uint32
}

// ReadFragmentHeader reads and parses one fragment header. EOF is
// returned unwrapped so callers can distinguish a clean client
// disconnect from a framing error.
func ReadFragmentHeader(r io.Reader) (*FragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	header := binary.BigEndian.Uint32(buf[:])
	return &FragmentHeader{
		IsLast: header&0x80000000 != 0,
		Length: header & 0x7FFFFFFF,
	}, nil
}

// WriteFragmentHeader writes a single-fragment, last-fragment header for
// the given payload length. Replies are always emitted as one fragment.
func WriteFragmentHeader(w io.Writer, length uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], length|0x80000000)
	_, err := w.Write(buf[:])
	return err
}

// ValidateFragmentSize rejects a fragment whose declared length would
// blow the configured cap before any allocation happens. A hostile client
// sending an oversized length is a hard failure: close the connection.
func ValidateFragmentSize(length uint32, clientAddr string) error {
	if length > MaxFragmentSize {
		logger.Warn("fragment exceeds maximum size",
			"size", bytesize.ByteSize(length),
			"max", bytesize.ByteSize(MaxFragmentSize),
			"address", clientAddr)
		return fmt.Errorf("rpc: fragment too large: %d bytes", length)
	}
	return nil
}

// ReadMessage reads exactly length bytes of fragment payload into a
// pooled buffer. The caller must bufpool.Put the returned slice once
// done with it.
func ReadMessage(r io.Reader, length uint32) ([]byte, error) {
	msg := bufpool.GetUint32(length)
	if _, err := io.ReadFull(r, msg); err != nil {
		bufpool.Put(msg)
		return nil, fmt.Errorf("rpc: read message: %w", err)
	}
	return msg, nil
}

// ReadRecord accumulates fragments from r until the last-fragment bit is
// seen and returns the concatenated record payload. Clients MAY split a
// single CALL across multiple fragments; single-fragment records are the
// overwhelmingly common case and take a zero-copy path.
func ReadRecord(r io.Reader, clientAddr string) ([]byte, func(), error) {
	hdr, err := ReadFragmentHeader(r)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateFragmentSize(hdr.Length, clientAddr); err != nil {
		return nil, nil, err
	}
	first, err := ReadMessage(r, hdr.Length)
	if err != nil {
		return nil, nil, err
	}
	if hdr.IsLast {
		return first, func() { bufpool.Put(first) }, nil
	}

	// Multi-fragment record: copy into a growing owned buffer since the
	// pieces arrive as separately pooled slices.
	record := make([]byte, len(first))
	copy(record, first)
	bufpool.Put(first)

	for {
		hdr, err := ReadFragmentHeader(r)
		if err != nil {
			return nil, nil, err
		}
		if err := ValidateFragmentSize(hdr.Length, clientAddr); err != nil {
			return nil, nil, err
		}
		if uint64(len(record))+uint64(hdr.Length) > MaxFragmentSize {
			return nil, nil, fmt.Errorf("rpc: record exceeds maximum size")
		}
		chunk, err := ReadMessage(r, hdr.Length)
		if err != nil {
			return nil, nil, err
		}
		record = append(record, chunk...)
		bufpool.Put(chunk)
		if hdr.IsLast {
			return record, func() {}, nil
		}
	}
}

// WriteRecord writes payload as a single fragment with the last-fragment
// bit set. RFC 5531 implementations SHOULD emit single-fragment replies,
// and every reply this server builds fits comfortably under one
// fragment's size limit.
func WriteRecord(w io.Writer, payload []byte) error {
	if err := WriteFragmentHeader(w, uint32(len(payload))); err != nil {
		return fmt.Errorf("rpc: write fragment header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("rpc: write fragment payload: %w", err)
	}
	return nil
}

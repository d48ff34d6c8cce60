package xdr

import (
	"bytes"
	"io"
)

// NFSv3 leans heavily on the XDR discriminated-union pattern (RFC 4506
// §4.15): a 4-byte discriminant followed by exactly one arm's payload.
// Every optional field (post_op_attr, post_op_fh3, the sattr3 setters,
// createhow3, mknoddata3) is such a union. We decode the discriminant
// first and let the caller switch on it to route to the right arm —
// never as a pair of nullable fields, since some discriminants carry
// meaning beyond mere presence (e.g. SET_TO_CLIENT_TIME vs DONT_CHANGE).

// WriteDiscriminant writes a union's 4-byte arm selector.
func WriteDiscriminant(buf *bytes.Buffer, discriminant uint32) error {
	return WriteUint32(buf, discriminant)
}

// ReadDiscriminant reads a union's 4-byte arm selector.
func ReadDiscriminant(reader io.Reader) (uint32, error) {
	return DecodeUint32(reader)
}

// WriteOptional writes the present/absent discriminator used by
// post_op_attr and post_op_fh3, then invokes encodeArm only if present.
func WriteOptional(buf *bytes.Buffer, present bool, encodeArm func() error) error {
	if err := WriteBool(buf, present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return encodeArm()
}

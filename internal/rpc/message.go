package rpc

import (
	"bytes"
	"fmt"

	"github.com/go-nfsd/exportd/internal/xdr"
)

// RPC message types (RFC 5531 §9).
const (
	MsgCall  uint32 = 0
	MsgReply uint32 = 1
)

// Reply body discriminator (RFC 5531 §9).
const (
	MsgAccepted uint32 = 0
	MsgDenied   uint32 = 1
)

// accept_stat values (RFC 5531 §9).
const (
	Success      uint32 = 0
	ProgUnavail  uint32 = 1
	ProgMismatch uint32 = 2
	ProcUnavail  uint32 = 3
	GarbageArgs  uint32 = 4
	SystemErr    uint32 = 5
)

// reject_stat values (RFC 5531 §9).
const (
	RPCMismatch uint32 = 0
	AuthError   uint32 = 1
)

// auth_stat values (RFC 5531 §9), used when RejectStat == AuthError.
const (
	AuthOK           uint32 = 0
	AuthBadCred      uint32 = 1
	AuthRejectedCred uint32 = 2
	AuthBadVerf      uint32 = 3
	AuthRejectedVerf uint32 = 4
	AuthTooWeak      uint32 = 5
)

// Authentication flavors (RFC 5531 §8.2). AUTH_UNIX is RFC 5531's legacy
// name for what most implementations call AUTH_SYS.
const (
	AuthFlavorNone uint32 = 0
	AuthFlavorSys  uint32 = 1
	AuthFlavorGSS  uint32 = 6
)

// NFSv3 and MOUNTv3 program numbers (RFC 1813, MOUNT appendix I).
const (
	ProgramMount uint32 = 100005
	ProgramNFS   uint32 = 100003
)

const RPCVersion2 uint32 = 2

// OpaqueAuth is the cred/verf pair carried on every CALL and REPLY
// (RFC 5531 §8.1): a flavor tag and an opaque, flavor-specific body.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte
}

// CallMessage is a decoded CALL envelope, positioned just past the
// procedure-specific arguments' start.
type CallMessage struct {
	XID       uint32
	Program   uint32
	Version   uint32
	Procedure uint32
	Cred      OpaqueAuth
	Verf      OpaqueAuth
}

// DecodeError wraps a CALL-decoding failure with the xid, if one was
// successfully read before the failure, so the dispatcher can still
// build a well-formed REPLY (RPC_MISMATCH, say) instead of treating
// every malformed CALL as an unrepliable transport fault.
type DecodeError struct {
	XID      uint32
	HasXID   bool
	RPCVers  bool // true when the failure is specifically an rpcvers mismatch
	Err      error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeCall parses the RPC message header and CALL envelope from a
// complete record payload, returning the envelope and the remaining
// bytes (the procedure's own arguments). Any error here is a framing or
// RPC-level fault, never an NFS-level one. Once the xid itself has been
// read, failures are returned as *DecodeError so callers can still reply
// against that xid; a failure reading the xid itself has no reply target
// and is a pure transport fault.
func DecodeCall(data []byte) (*CallMessage, []byte, error) {
	d := xdr.NewDecoder(data)

	xid, err := d.Uint32()
	if err != nil {
		return nil, nil, fmt.Errorf("rpc: decode xid: %w", err)
	}
	msgType, err := d.Uint32()
	if err != nil {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: decode msg_type: %w", err)}
	}
	if msgType != MsgCall {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: msg_type %d is not CALL", msgType)}
	}
	rpcvers, err := d.Uint32()
	if err != nil {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: decode rpcvers: %w", err)}
	}
	if rpcvers != RPCVersion2 {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, RPCVers: true, Err: fmt.Errorf("rpc: unsupported rpcvers %d", rpcvers)}
	}
	program, err := d.Uint32()
	if err != nil {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: decode prog: %w", err)}
	}
	version, err := d.Uint32()
	if err != nil {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: decode vers: %w", err)}
	}
	procedure, err := d.Uint32()
	if err != nil {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: decode proc: %w", err)}
	}
	cred, err := decodeOpaqueAuth(d)
	if err != nil {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: decode cred: %w", err)}
	}
	verf, err := decodeOpaqueAuth(d)
	if err != nil {
		return nil, nil, &DecodeError{XID: xid, HasXID: true, Err: fmt.Errorf("rpc: decode verf: %w", err)}
	}

	consumed := len(data) - d.Remaining()
	return &CallMessage{
		XID:       xid,
		Program:   program,
		Version:   version,
		Procedure: procedure,
		Cred:      cred,
		Verf:      verf,
	}, data[consumed:], nil
}

func decodeOpaqueAuth(d *xdr.Decoder) (OpaqueAuth, error) {
	flavor, err := d.Uint32()
	if err != nil {
		return OpaqueAuth{}, err
	}
	body, err := d.Opaque()
	if err != nil {
		return OpaqueAuth{}, err
	}
	return OpaqueAuth{Flavor: flavor, Body: body}, nil
}

// writeNullVerf writes the AUTH_NONE verifier every reply mirrors back, since this
// server never authenticates callers beyond parsing AUTH_SYS credentials.
func writeNullVerf(buf *bytes.Buffer) {
	_ = xdr.WriteUint32(buf, AuthFlavorNone)
	_ = xdr.WriteOpaque(buf, nil)
}

// AcceptedReply builds a MSG_ACCEPTED reply with the given accept_stat
// and procedure-specific body. For non-Success statuses, body must be
// empty (PROG_MISMATCH appends its own low/high version body via
// ProgMismatchReply instead).
func AcceptedReply(xid uint32, acceptStat uint32, body []byte) []byte {
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, xid)
	_ = xdr.WriteUint32(buf, MsgReply)
	_ = xdr.WriteUint32(buf, MsgAccepted)
	writeNullVerf(buf)
	_ = xdr.WriteUint32(buf, acceptStat)
	buf.Write(body)
	return buf.Bytes()
}

// ProgMismatchReply builds the accepted PROG_MISMATCH reply, which
// uniquely among acceptance statuses carries a body: the lowest and
// highest supported versions.
func ProgMismatchReply(xid, low, high uint32) []byte {
	body := new(bytes.Buffer)
	_ = xdr.WriteUint32(body, low)
	_ = xdr.WriteUint32(body, high)
	return AcceptedReply(xid, ProgMismatch, body.Bytes())
}

// DeniedReply builds a MSG_DENIED reply for an authentication failure.
func DeniedReply(xid uint32, authStat uint32) []byte {
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, xid)
	_ = xdr.WriteUint32(buf, MsgReply)
	_ = xdr.WriteUint32(buf, MsgDenied)
	_ = xdr.WriteUint32(buf, AuthError)
	_ = xdr.WriteUint32(buf, authStat)
	return buf.Bytes()
}

// RPCMismatchReply builds a MSG_DENIED reply for an rpcvers outside the
// range this server supports (RFC 5531 §9: RPC_MISMATCH carries the
// lowest/highest versions supported, same shape as PROG_MISMATCH).
func RPCMismatchReply(xid, low, high uint32) []byte {
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, xid)
	_ = xdr.WriteUint32(buf, MsgReply)
	_ = xdr.WriteUint32(buf, MsgDenied)
	_ = xdr.WriteUint32(buf, RPCMismatch)
	_ = xdr.WriteUint32(buf, low)
	_ = xdr.WriteUint32(buf, high)
	return buf.Bytes()
}

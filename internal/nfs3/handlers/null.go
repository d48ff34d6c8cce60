package handlers

// Null implements NFSPROC3_NULL: a no-op liveness probe that takes no
// arguments and returns no result (RFC 1813 §3.3.0).
func (h *Handlers) Null(ctx *Context, args []byte) ([]byte, error) {
	return nil, nil
}

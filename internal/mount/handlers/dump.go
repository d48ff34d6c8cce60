package handlers

import (
	"bytes"
	"sort"

	"github.com/go-nfsd/exportd/internal/xdr"
)

// Dump implements MOUNTPROC3_DUMP (RFC 1813 Appendix I §1.2.2): the list
// of (host, path) pairs currently mounted, encoded as a linked list of
// present markers terminated by an absent marker, same convention as
// READDIR's entry list.
func (h *Handlers) Dump(ctx *Context, args []byte) ([]byte, error) {
	h.mu.Lock()
	hosts := make([]string, 0, len(h.entries))
	for host := range h.entries {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	snapshot := make([]entry, 0, len(hosts))
	for _, host := range hosts {
		snapshot = append(snapshot, h.entries[host])
	}
	h.mu.Unlock()

	var buf bytes.Buffer
	for _, e := range snapshot {
		_ = xdr.WriteBool(&buf, true)
		_ = xdr.WriteString(&buf, e.host)
		_ = xdr.WriteString(&buf, e.path)
	}
	_ = xdr.WriteBool(&buf, false)
	return buf.Bytes(), nil
}

// Export implements MOUNTPROC3_EXPORT (RFC 1813 Appendix I §1.2.5): the
// list of (path, groups[]) export entries this server offers. Since this
// exporter serves exactly one directory subtree, the list always has at
// most one entry.
func (h *Handlers) Export(ctx *Context, args []byte) ([]byte, error) {
	var buf bytes.Buffer
	_ = xdr.WriteBool(&buf, true)
	_ = xdr.WriteString(&buf, h.ExportPath)
	for _, g := range h.Groups {
		_ = xdr.WriteBool(&buf, true)
		_ = xdr.WriteString(&buf, g)
	}
	_ = xdr.WriteBool(&buf, false)
	_ = xdr.WriteBool(&buf, false) // terminate the export-entry list
	return buf.Bytes(), nil
}

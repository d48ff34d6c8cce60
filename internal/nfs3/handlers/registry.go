package handlers

import (
	"github.com/go-nfsd/exportd/internal/fsal"
	"github.com/go-nfsd/exportd/internal/nfs3"
	"github.com/go-nfsd/exportd/internal/nfs3/handle"
)

// Proc is the uniform shape every NFSv3 procedure handler satisfies:
// decode its own arguments from the raw payload, act against the FSAL,
// encode its own result. A non-nil error here means the arguments
// themselves were malformed — the dispatcher maps that to GARBAGE_ARGS,
// distinct from an in-protocol nfsstat3 failure encoded in the reply.
type Proc func(ctx *Context, args []byte) ([]byte, error)

// New builds a Handlers bound to the given FSAL and handle service.
func New(fs fsal.FSAL, handles *handle.Service) *Handlers {
	return &Handlers{FSAL: fs, Handles: handles}
}

// Table returns the complete NFSv3 procedure dispatch table, indexed by
// procedure number (RFC 1813 §3.3).
func (h *Handlers) Table() map[uint32]Proc {
	return map[uint32]Proc{
		nfs3.ProcNull:        h.Null,
		nfs3.ProcGetAttr:     h.GetAttr,
		nfs3.ProcSetAttr:     h.SetAttr,
		nfs3.ProcLookup:      h.Lookup,
		nfs3.ProcAccess:      h.Access,
		nfs3.ProcReadlink:    h.Readlink,
		nfs3.ProcRead:        h.Read,
		nfs3.ProcWrite:       h.Write,
		nfs3.ProcCreate:      h.Create,
		nfs3.ProcMkdir:       h.Mkdir,
		nfs3.ProcSymlink:     h.Symlink,
		nfs3.ProcMknod:       h.Mknod,
		nfs3.ProcRemove:      h.Remove,
		nfs3.ProcRmdir:       h.Rmdir,
		nfs3.ProcRename:      h.Rename,
		nfs3.ProcLink:        h.Link,
		nfs3.ProcReaddir:     h.Readdir,
		nfs3.ProcReaddirPlus: h.ReaddirPlus,
		nfs3.ProcFsStat:      h.FsStat,
		nfs3.ProcFsInfo:      h.FsInfo,
		nfs3.ProcPathconf:    h.PathConf,
		nfs3.ProcCommit:      h.Commit,
	}
}

// Package gamelist maintains the set of known multiplayer game servers:
// add-or-get by address, delayed thread-safe insertion of discovered servers,
// periodic requery scheduling and content compatibility resolution.
package gamelist

import (
	"encoding/hex"
	"fmt"
)

// ContentStatus represents the resolution state of a single content
// dependency reported by a server.
//
// Transitions (all performed by the Resolver, never by the wire path):
//
//	"" (unresolved)  -> not_found   (catalog has no exact match)
//	"" (unresolved)  -> unknown     (catalog match found, runtime compatibility unverified)
//	not_found        -> unknown     (content appeared after a rescan)
//	unknown          -> not_found   (content removed by a rescan)
type ContentStatus string

const (
	// StatusUnresolved - freshly reported by a server, not yet matched
	// against the local catalog.
	StatusUnresolved ContentStatus = ""
	// StatusNotFound - the local catalog has no package with this
	// identifier and checksum.
	StatusNotFound ContentStatus = "not_found"
	// StatusUnknown - the package exists locally but compatibility with the
	// running game instance has not been separately verified. Weaker than
	// "confirmed compatible" on purpose: having the file does not guarantee
	// version-exact behaviour.
	StatusUnknown ContentStatus = "unknown"
)

// DisplayString returns a human-readable representation of the status.
func (s ContentStatus) DisplayString() string {
	switch s {
	case StatusNotFound:
		return "Not Found"
	case StatusUnknown:
		return "Present"
	default:
		return "Unresolved"
	}
}

// ContentIdent uniquely identifies an add-on content package by its numeric
// identifier and MD5 checksum. Matching is always exact on both fields.
type ContentIdent struct {
	ID  uint32
	MD5 [16]byte
}

// Key returns a stable textual form of the ident, usable as a map or
// database key.
func (c ContentIdent) Key() string {
	return fmt.Sprintf("%08x:%s", c.ID, hex.EncodeToString(c.MD5[:]))
}

// ContentInfo is one content dependency descriptor of a server. The wire
// path fills in Ident only; Name, Filename, Description and Status are
// resolved locally against the content catalog.
type ContentInfo struct {
	Ident       ContentIdent
	Name        string
	Filename    string
	Description string
	Status      ContentStatus
}

// ServerInfo is the last-known status snapshot of a server.
type ServerInfo struct {
	Name     string
	Revision string
	Content  []*ContentInfo

	ClientsOn  int
	ClientsMax int

	// Online is true once a live status response has been received.
	Online bool
	// VersionCompatible is set by the wire path from the reported revision.
	VersionCompatible bool
	// Compatible aggregates version and content compatibility. Owned by the
	// Resolver.
	Compatible bool
}

// ServerEntry is one remembered server. The Address is the entry's identity
// and never changes after creation; all other fields are mutated only on the
// owning goroutine.
type ServerEntry struct {
	// Address is the canonical host:port string.
	Address string
	Info    ServerInfo

	// Manual marks servers the user added explicitly. Manual entries
	// survive list rebuilds and are persisted to the host list.
	Manual bool

	// Retries counts consecutive requery windows since the last full
	// refresh. Managed by the Scheduler.
	Retries int
}

// PendingRecord is a just-discovered or just-queried server awaiting merge
// into the list. It is pushed exactly once and consumed exactly once by the
// drain step, which is its sole deallocator.
type PendingRecord struct {
	// Address is the connection string as reported; it is canonicalized
	// during merge.
	Address string
	Info    ServerInfo
	Manual  bool

	next *PendingRecord
}

package storage

import (
	"encoding/json"
	"time"
)

// Bucket names for the bbolt database.
const (
	HostsBucket          = "hosts"
	UnknownContentBucket = "unknown_content"
	MetaBucket           = "meta"
)

// Meta keys.
const (
	SchemaVersionKey = "schema"
)

// CurrentSchemaVersion is bumped whenever a record layout changes.
const CurrentSchemaVersion = 1

// HostRecord is one manually added server in the persisted host list.
type HostRecord struct {
	Address  string    `json:"address"`
	Name     string    `json:"name,omitempty"`
	Added    time.Time `json:"added"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// UnknownContentRecord remembers the display name of a content package this
// client does not have, as reported by some server. Keyed by the content
// ident so the UI can label the same package on other servers.
type UnknownContentRecord struct {
	IdentKey string    `json:"ident_key"`
	Name     string    `json:"name"`
	Learned  time.Time `json:"learned"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *HostRecord) MarshalBinary() ([]byte, error) {
	return json.Marshal(h)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *HostRecord) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, h)
}

package gamelist

import (
	"go.uber.org/zap"

	"serverbrowser-go/internal/events"
)

// AddressResolver canonicalizes a user- or wire-supplied connection string
// into the host:port form used as entry identity.
type AddressResolver interface {
	Resolve(connectionString string) string
}

// ResolverFunc adapts a plain function to the AddressResolver interface.
type ResolverFunc func(connectionString string) string

// Resolve implements AddressResolver.
func (f ResolverFunc) Resolve(connectionString string) string {
	return f(connectionString)
}

// List is the server registry: an insertion-ordered collection of entries
// keyed by resolved address. All mutation happens on a single owning
// goroutine; the only cross-goroutine entry point is PushDiscovered.
type List struct {
	logger   *zap.Logger
	bus      *events.Bus
	resolver AddressResolver
	pending  pendingQueue

	entries []*ServerEntry
	byAddr  map[string]*ServerEntry

	// onMerged is invoked after a drained record replaces an entry's
	// snapshot, so the session can re-resolve that entry's content.
	onMerged func(*ServerEntry)
}

// NewList creates an empty server list.
func NewList(resolver AddressResolver, bus *events.Bus, logger *zap.Logger) *List {
	return &List{
		logger:   logger.Named("gamelist"),
		bus:      bus,
		resolver: resolver,
		byAddr:   make(map[string]*ServerEntry),
	}
}

// SetMergedHook sets the callback invoked when a drained record updates an
// entry's snapshot. Must be set before the tick loop starts.
func (l *List) SetMergedHook(fn func(*ServerEntry)) {
	l.onMerged = fn
}

// PushDiscovered hands a discovered server to the owning goroutine. Safe to
// call from any goroutine; the record is merged on the next tick.
func (l *List) PushDiscovered(rec *PendingRecord) {
	l.pending.push(rec)
}

// AddOrGet returns the entry for the given connection string, creating an
// empty one at the end of the list if none exists. Never fails; duplicate
// adds return the existing entry.
func (l *List) AddOrGet(connectionString string) *ServerEntry {
	address := l.resolver.Resolve(connectionString)

	if entry, ok := l.byAddr[address]; ok {
		return entry
	}

	entry := &ServerEntry{Address: address}
	l.entries = append(l.entries, entry)
	l.byAddr[address] = entry

	l.logger.Debug("Added server to list", zap.String("server", address))
	l.bus.Publish(events.Event{
		Type:    events.ServerListChanged,
		Address: address,
		Action:  "created",
	})
	return entry
}

// Get returns the entry for the given connection string, or nil.
func (l *List) Get(connectionString string) *ServerEntry {
	return l.byAddr[l.resolver.Resolve(connectionString)]
}

// Remove unlinks an entry from the list. Removing an entry that is absent
// or already removed is a no-op.
func (l *List) Remove(entry *ServerEntry) {
	existing, ok := l.byAddr[entry.Address]
	if !ok || existing != entry {
		return
	}

	delete(l.byAddr, entry.Address)
	for i, e := range l.entries {
		if e == entry {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	entry.Info.Content = nil

	l.logger.Debug("Removed server from list", zap.String("server", entry.Address))
	l.bus.Publish(events.Event{
		Type:    events.HostListChanged,
		Address: entry.Address,
	})
	l.bus.Publish(events.Event{
		Type:    events.ServerListChanged,
		Address: entry.Address,
		Action:  "removed",
	})
}

// All returns the entries in insertion order. The returned slice is a
// snapshot; the entries themselves are shared and must only be touched on
// the owning goroutine.
func (l *List) All() []*ServerEntry {
	out := make([]*ServerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.entries)
}

// drainPending takes the whole pending stack in one exchange and merges
// every record into the list. Owning goroutine only.
func (l *List) drainPending() {
	for rec := l.pending.take(); rec != nil; rec = rec.next {
		l.merge(rec)
	}
}

// merge folds one drained record into the list.
func (l *List) merge(rec *PendingRecord) {
	entry := l.AddOrGet(rec.Address)

	updated := false
	switch {
	case rec.Info.Online:
		// Confirmed live response: replace the whole snapshot.
		entry.Info = rec.Info
		updated = true
	case entry.Info.Name == "" && rec.Info.Name != "":
		// Name-only placeholder for a previously nameless entry: the stale
		// dependency list goes with the old snapshot, and the entry is not
		// online until a real response arrives.
		entry.Info = rec.Info
		entry.Info.Online = false
		updated = true
	}

	if rec.Manual && !entry.Manual {
		entry.Manual = true
		l.bus.Publish(events.Event{
			Type:    events.HostListChanged,
			Address: entry.Address,
		})
	}

	if updated {
		if l.onMerged != nil {
			l.onMerged(entry)
		}
		l.bus.Publish(events.Event{
			Type:    events.ServerListChanged,
			Address: entry.Address,
			Action:  "updated",
		})
	}
}

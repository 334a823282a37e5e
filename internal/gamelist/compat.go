package gamelist

import (
	"go.uber.org/zap"

	"serverbrowser-go/internal/events"
)

// CatalogItem is the locally known metadata for a content package.
type CatalogItem struct {
	Name        string
	Filename    string
	Description string
}

// ContentCatalog answers whether the local client has a content package.
// Lookup matches exactly on identifier and checksum. ResolveUnknownName
// recovers a best-effort display name for content this client does not
// have; with mark set, the ident is remembered as seen-but-unknown.
type ContentCatalog interface {
	Lookup(ident ContentIdent) (CatalogItem, bool)
	ResolveUnknownName(ident ContentIdent, mark bool) string
}

// Resolver recomputes content compatibility for list entries against the
// local content catalog. Run it after every catalog rescan.
type Resolver struct {
	logger  *zap.Logger
	list    *List
	catalog ContentCatalog
	bus     *events.Bus
}

// NewResolver creates a resolver over the given list and catalog.
func NewResolver(list *List, catalog ContentCatalog, bus *events.Bus, logger *zap.Logger) *Resolver {
	return &Resolver{
		logger:  logger.Named("compat"),
		list:    list,
		catalog: catalog,
		bus:     bus,
	}
}

// ReconcileAll re-resolves every entry's content dependencies. A dependency
// the catalog cannot match never aborts the pass; it is recorded as
// not_found on the descriptor and folded into the entry's aggregate flag.
// One batched notification is published at the end regardless of list size.
// Owning goroutine only.
func (r *Resolver) ReconcileAll() {
	for _, entry := range r.list.entries {
		r.ReconcileEntry(entry)
	}

	r.logger.Debug("Reconciled content compatibility", zap.Int("servers", r.list.Len()))
	r.bus.Publish(events.Event{Type: events.ContentInfoChanged})
}

// ReconcileEntry re-resolves a single entry, e.g. right after its status
// snapshot was replaced by a merge.
func (r *Resolver) ReconcileEntry(entry *ServerEntry) {
	// Version compatibility is independent of content and not recomputed
	// here; it is the baseline the content checks subtract from.
	entry.Info.Compatible = entry.Info.VersionCompatible

	for _, c := range entry.Info.Content {
		item, ok := r.catalog.Lookup(c.Ident)
		if !ok {
			// Another server may have told us this package's name already.
			c.Name = r.catalog.ResolveUnknownName(c.Ident, true)
			c.Status = StatusNotFound

			// Missing a file means we cannot join.
			entry.Info.Compatible = false
			continue
		}

		c.Filename = item.Filename
		c.Name = item.Name
		c.Description = item.Description
		c.Status = StatusUnknown
	}
}

// Package content is the local catalog of scanned add-on packages. It
// answers exact-match lookups from the compatibility resolver and keeps a
// best-effort name cache for content the client does not have, so the UI
// never has to show a raw identifier.
package content

import (
	"sync"

	"go.uber.org/zap"

	"serverbrowser-go/internal/gamelist"
	"serverbrowser-go/internal/storage"
)

// Package is one locally available content package.
type Package struct {
	Ident       gamelist.ContentIdent
	Name        string
	Filename    string
	Description string
}

// Catalog implements gamelist.ContentCatalog.
type Catalog struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	store    *storage.Manager
	packages map[gamelist.ContentIdent]*Package
	// unknown caches names learned from servers for packages we do not
	// have, mirrored to storage so they survive restarts.
	unknown map[string]string
}

// NewCatalog creates a catalog, seeding the unknown-name cache from
// storage. The store may be nil for an ephemeral catalog.
func NewCatalog(store *storage.Manager, logger *zap.Logger) (*Catalog, error) {
	c := &Catalog{
		logger:   logger.Named("content"),
		store:    store,
		packages: make(map[gamelist.ContentIdent]*Package),
		unknown:  make(map[string]string),
	}

	if store != nil {
		names, err := store.LoadUnknownContentNames()
		if err != nil {
			return nil, err
		}
		c.unknown = names
	}
	return c, nil
}

// Replace swaps the whole package set, e.g. after a filesystem rescan.
func (c *Catalog) Replace(packages []*Package) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.packages = make(map[gamelist.ContentIdent]*Package, len(packages))
	for _, pkg := range packages {
		c.packages[pkg.Ident] = pkg
	}
	c.logger.Info("Content catalog replaced", zap.Int("packages", len(packages)))
}

// Add registers a single scanned package.
func (c *Catalog) Add(pkg *Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packages[pkg.Ident] = pkg
}

// Len returns the number of known packages.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.packages)
}

// Lookup implements gamelist.ContentCatalog with exact ident matching.
func (c *Catalog) Lookup(ident gamelist.ContentIdent) (gamelist.CatalogItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pkg, ok := c.packages[ident]
	if !ok {
		return gamelist.CatalogItem{}, false
	}
	return gamelist.CatalogItem{
		Name:        pkg.Name,
		Filename:    pkg.Filename,
		Description: pkg.Description,
	}, true
}

// ResolveUnknownName implements gamelist.ContentCatalog. With mark set, the
// ident is recorded as seen-but-unknown even when no name is cached yet, so
// a later LearnName can fill it in.
func (c *Catalog) ResolveUnknownName(ident gamelist.ContentIdent, mark bool) string {
	key := ident.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	name, seen := c.unknown[key]
	if !seen && mark {
		c.unknown[key] = ""
	}
	return name
}

// LearnName remembers the display name a server reported for content this
// client does not have.
func (c *Catalog) LearnName(ident gamelist.ContentIdent, name string) {
	if name == "" {
		return
	}
	key := ident.Key()

	c.mu.Lock()
	if existing, ok := c.unknown[key]; ok && existing == name {
		c.mu.Unlock()
		return
	}
	c.unknown[key] = name
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveUnknownContentName(key, name); err != nil {
			c.logger.Warn("Failed to persist learned content name",
				zap.String("ident", key),
				zap.Error(err))
		}
	}
}

// Package index maintains a full-text search index over server entries so
// browser UIs can filter large lists by name or address.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"
)

// ServerDocument is the indexed projection of a server entry.
type ServerDocument struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	Revision   string `json:"revision"`
	Online     bool   `json:"online"`
	Compatible bool   `json:"compatible"`
}

// SearchResult is one matching server.
type SearchResult struct {
	Address string  `json:"address"`
	Score   float64 `json:"score"`
}

// Manager wraps the bleve index.
type Manager struct {
	index  bleve.Index
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewManager opens (or creates) the index under dataDir. An empty dataDir
// yields an in-memory index.
func NewManager(dataDir string, logger *zap.Logger) (*Manager, error) {
	var (
		idx bleve.Index
		err error
	)

	if dataDir == "" {
		idx, err = bleve.NewMemOnly(bleve.NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
	} else {
		indexPath := filepath.Join(dataDir, "servers.bleve")
		idx, err = bleve.Open(indexPath)
		if err != nil {
			if _, statErr := os.Stat(indexPath); statErr == nil {
				return nil, fmt.Errorf("failed to open index: %w", err)
			}
			idx, err = bleve.New(indexPath, bleve.NewIndexMapping())
			if err != nil {
				return nil, fmt.Errorf("failed to create index: %w", err)
			}
		}
	}

	return &Manager{
		index:  idx,
		logger: logger.Named("index"),
	}, nil
}

// Close closes the index.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index.Close()
}

// IndexServer adds or updates a server document, keyed by address.
func (m *Manager) IndexServer(doc *ServerDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.index.Index(doc.Address, doc); err != nil {
		return fmt.Errorf("failed to index server %s: %w", doc.Address, err)
	}
	return nil
}

// RemoveServer deletes a server document. Removing an unindexed address is
// a no-op.
func (m *Manager) RemoveServer(address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.index.Delete(address); err != nil {
		return fmt.Errorf("failed to remove server %s: %w", address, err)
	}
	return nil
}

// Search returns servers matching the query string, best first.
func (m *Manager) Search(query string, limit int) ([]*SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := m.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, &SearchResult{
			Address: hit.ID,
			Score:   hit.Score,
		})
	}
	return results, nil
}

// Count returns the number of indexed servers.
func (m *Manager) Count() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.DocCount()
}

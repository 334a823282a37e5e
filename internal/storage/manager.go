// Package storage persists the server browser's durable state - the
// manually added host list and the unknown-content name cache - in a bbolt
// database.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Manager provides a unified interface for storage operations.
type Manager struct {
	db     *bbolt.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewManager opens (or creates) the database under dataDir.
func NewManager(dataDir string, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "browser.db")
	db, err := bbolt.Open(dbPath, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := &Manager{
		db:     db,
		logger: logger.Named("storage"),
	}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the database.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Manager) initSchema() error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{HostsBucket, UnknownContentBucket, MetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket([]byte(MetaBucket))
		raw := meta.Get([]byte(SchemaVersionKey))
		if raw == nil {
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, CurrentSchemaVersion)
			return meta.Put([]byte(SchemaVersionKey), buf)
		}
		if v := binary.BigEndian.Uint64(raw); v != CurrentSchemaVersion {
			return fmt.Errorf("unsupported schema version %d (want %d)", v, CurrentSchemaVersion)
		}
		return nil
	})
}

// Host list operations

// SaveHostList replaces the persisted host list with the given records.
// Called when the registry marks the host list dirty.
func (m *Manager) SaveHostList(hosts []*HostRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(HostsBucket)); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket([]byte(HostsBucket))
		if err != nil {
			return err
		}
		for _, host := range hosts {
			data, err := json.Marshal(host)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(host.Address), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save host list: %w", err)
	}

	m.logger.Debug("Rebuilt host list", zap.Int("hosts", len(hosts)))
	return nil
}

// LoadHostList returns the persisted host list, ordered by address.
func (m *Manager) LoadHostList() ([]*HostRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hosts []*HostRecord
	err := m.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(HostsBucket)).ForEach(func(_, v []byte) error {
			var rec HostRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			hosts = append(hosts, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load host list: %w", err)
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Address < hosts[j].Address })
	return hosts, nil
}

// Unknown content name cache

// SaveUnknownContentName remembers a display name for content the local
// catalog does not have.
func (m *Manager) SaveUnknownContentName(identKey, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := UnknownContentRecord{
		IdentKey: identKey,
		Name:     name,
		Learned:  time.Now(),
	}
	err := m.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(UnknownContentBucket)).Put([]byte(identKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save unknown content name: %w", err)
	}
	return nil
}

// GetUnknownContentName returns the remembered name for an ident key, or ""
// when nothing has been learned about it.
func (m *Manager) GetUnknownContentName(identKey string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var name string
	err := m.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(UnknownContentBucket)).Get([]byte(identKey))
		if raw == nil {
			return nil
		}
		var rec UnknownContentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		name = rec.Name
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to load unknown content name: %w", err)
	}
	return name, nil
}

// LoadUnknownContentNames returns the whole learned-name cache keyed by
// ident key, for seeding the in-memory catalog at startup.
func (m *Manager) LoadUnknownContentNames() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[string]string)
	err := m.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(UnknownContentBucket)).ForEach(func(k, v []byte) error {
			var rec UnknownContentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			names[string(k)] = rec.Name
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load unknown content names: %w", err)
	}
	return names, nil
}

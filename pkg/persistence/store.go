package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the generic durable key-value layer shared by the stage session
// manager and the versioned document store. Values are serialized as JSON.
type Store interface {
	// Save persists a value under the given key.
	Save(key string, value any) error
	// Load retrieves a value by key into the provided destination.
	// Returns ErrNotFound if the key does not exist.
	Load(key string, dest any) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
	// List returns all keys in the namespace.
	List() ([]string, error)
	// LatestKey returns the most-recently-updated key, or ErrNotFound if
	// the namespace is empty. Used to locate "the" active session on reload
	// when no explicit key is supplied.
	LatestKey() (string, error)
	// Clear removes every record in the namespace.
	Clear() error
}

// SQLStore implements Store on top of the singleton SQLite database, scoped
// to a single namespace.
type SQLStore struct {
	db        *sql.DB
	namespace string
}

// NewSQLStore creates a namespaced store backed by the given database.
func NewSQLStore(db *sql.DB, namespace string) *SQLStore {
	return &SQLStore{db: db, namespace: namespace}
}

// Save persists a value under the given key.
func (s *SQLStore) Save(key string, value any) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO kv_records (namespace, key, value, updated_at)
		VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, s.namespace, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to save record %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// Load retrieves a value by key into the provided destination.
func (s *SQLStore) Load(key string, dest any) error {
	var value string
	err := s.db.QueryRow(`
		SELECT value FROM kv_records WHERE namespace = ? AND key = ?
	`, s.namespace, key).Scan(&value)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load record %s/%s: %w", s.namespace, key, err)
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return fmt.Errorf("failed to unmarshal record %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// Delete removes a key from the namespace.
func (s *SQLStore) Delete(key string) error {
	if _, err := s.db.Exec(`
		DELETE FROM kv_records WHERE namespace = ? AND key = ?
	`, s.namespace, key); err != nil {
		return fmt.Errorf("failed to delete record %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// List returns all keys in the namespace.
func (s *SQLStore) List() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT key FROM kv_records WHERE namespace = ? ORDER BY key
	`, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list records in %s: %w", s.namespace, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}

// LatestKey returns the most-recently-updated key in the namespace.
func (s *SQLStore) LatestKey() (string, error) {
	var key string
	err := s.db.QueryRow(`
		SELECT key FROM kv_records WHERE namespace = ?
		ORDER BY updated_at DESC LIMIT 1
	`, s.namespace).Scan(&key)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest key in %s: %w", s.namespace, err)
	}
	return key, nil
}

// Clear removes every record in the namespace.
func (s *SQLStore) Clear() error {
	if _, err := s.db.Exec(`
		DELETE FROM kv_records WHERE namespace = ?
	`, s.namespace); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", s.namespace, err)
	}
	return nil
}

// memRecord holds one in-memory record with its update sequence.
type memRecord struct {
	value []byte
	seq   int64
}

// MemStore is an in-memory Store used by tests and as a fallback when no
// durable storage is configured.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]memRecord
	nextSeq int64
	// FailWrites forces Save to fail, for exercising the
	// log-and-swallow persistence failure path.
	FailWrites bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]memRecord)}
}

// Save persists a value under the given key.
func (m *MemStore) Save(key string, value any) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return fmt.Errorf("simulated write failure for key %s", key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	m.nextSeq++
	m.records[key] = memRecord{value: data, seq: m.nextSeq}
	return nil
}

// Load retrieves a value by key into the provided destination.
func (m *MemStore) Load(key string, dest any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(rec.value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (m *MemStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// List returns all keys in sorted order.
func (m *MemStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// LatestKey returns the most-recently-updated key.
func (m *MemStore) LatestKey() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest string
	var latestSeq int64
	for k, rec := range m.records {
		if latest == "" || rec.seq > latestSeq {
			latest = k
			latestSeq = rec.seq
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return latest, nil
}

// Clear removes every record.
func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]memRecord)
	return nil
}

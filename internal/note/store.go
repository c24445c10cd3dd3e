package note

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Collection names the two durable slots the store manages.
type Collection string

const (
	CollectionActive Collection = "active"
	CollectionTrash  Collection = "trash"
)

// Store persists each collection as a full JSON snapshot under a fixed
// file in the data directory. Every save rewrites the whole collection;
// note volumes are small enough that no append log is needed.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save serializes the full collection and writes it under its slot. The
// write goes through a temp file and rename so a crash mid-write cannot
// leave a truncated snapshot behind.
func (s *Store) Save(collection Collection, notes []Note) error {
	if notes == nil {
		notes = []Note{}
	}
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s collection: %w", collection, err)
	}
	path := s.pathFor(collection)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s collection: %w", collection, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s collection: %w", collection, err)
	}
	return nil
}

// Load deserializes a collection slot. A missing file is a normal first
// run and yields an empty collection with no warning. Corrupt data also
// yields an empty collection, but the warning is returned so the caller
// can surface it; loading never fails application start.
func (s *Store) Load(collection Collection) ([]Note, error) {
	data, err := os.ReadFile(s.pathFor(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Note{}, nil
		}
		return []Note{}, fmt.Errorf("read %s collection: %w", collection, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Note{}, nil
	}
	var notes []Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return []Note{}, fmt.Errorf("decode %s collection: %w", collection, err)
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

func (s *Store) pathFor(collection Collection) string {
	return filepath.Join(s.dir, string(collection)+".json")
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens the database in dir, creating it if needed. An empty dir
// opens a throwaway in-memory store.
func Open(dir string, log zerolog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // badger's own logging is too chatty for a UCI process

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", dir, err)
	}
	log.Debug().Str("dir", dir).Msg("storage opened")
	return &Storage{db: db, log: log}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns a copy of the value stored under key.
func (s *Storage) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	return val, err
}

// Put stores val under key.
func (s *Storage) Put(key, val []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// Update runs fn in a read-write transaction.
func (s *Storage) Update(fn func(txn *badger.Txn) error) error {
	return s.db.Update(fn)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Storage) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Batch writes many pairs at once. put may be called any number of times
// inside fn; the writes are flushed when fn returns nil.
func (s *Storage) Batch(fn func(put func(key, val []byte) error) error) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	if err := fn(wb.Set); err != nil {
		return err
	}
	return wb.Flush()
}

// Scan calls fn for every key with the given prefix, in key order. The
// slices are only valid during the call.
func (s *Storage) Scan(prefix []byte, fn func(key, val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				return fn(item.Key(), val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of keys with the given prefix.
func (s *Storage) Count(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// SaveJSON stores v as JSON under key.
func (s *Storage) SaveJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put([]byte(key), data)
}

// LoadJSON decodes the JSON under key into v. A missing key leaves v
// untouched and is not an error, so callers can preset defaults.
func (s *Storage) LoadJSON(key string, v any) error {
	data, err := s.Get([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Package book stores searched positions keyed by Zobrist key so the
// engine can answer them without searching. Entries live in a badger
// database and can be moved between machines as a zstd-compressed dump.
package book

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/UoLeevi/uochess/internal/board"
	"github.com/UoLeevi/uochess/internal/storage"
)

// Entry is the stored answer for one position. Move is relative to the
// side to move, which the key already encodes.
type Entry struct {
	Move  board.Move
	Score int16
	Depth uint8
}

const (
	valueSize  = 5
	recordSize = 8 + valueSize
)

var (
	keyPrefix = []byte("book/")
	dumpMagic = [4]byte{'U', 'O', 'B', 'K'}
)

const (
	dumpVersion = 1
	metaKey     = "meta"
)

// Meta describes where the book's content came from.
type Meta struct {
	Updated time.Time `json:"updated"`
	Source  string    `json:"source"` // "search" or "import"
	Imports int       `json:"imports"`
}

// ErrDump is returned for a malformed dump.
var ErrDump = errors.New("book: invalid dump")

// Book is an opening and analysis book backed by storage.
type Book struct {
	st  *storage.Storage
	log zerolog.Logger
}

// Open opens the book database in dir; an empty dir gives an in-memory
// book.
func Open(dir string, log zerolog.Logger) (*Book, error) {
	st, err := storage.Open(dir, log)
	if err != nil {
		return nil, err
	}
	return &Book{st: st, log: log}, nil
}

// Close closes the underlying database.
func (b *Book) Close() error {
	return b.st.Close()
}

func dbKey(key uint64) []byte {
	k := make([]byte, len(keyPrefix)+8)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], key)
	return k
}

func encode(e Entry) []byte {
	var v [valueSize]byte
	binary.BigEndian.PutUint16(v[0:], uint16(e.Move))
	binary.BigEndian.PutUint16(v[2:], uint16(e.Score))
	v[4] = e.Depth
	return v[:]
}

func decode(v []byte) (Entry, error) {
	if len(v) != valueSize {
		return Entry{}, fmt.Errorf("%w: value of %d bytes", ErrDump, len(v))
	}
	return Entry{
		Move:  board.Move(binary.BigEndian.Uint16(v[0:])),
		Score: int16(binary.BigEndian.Uint16(v[2:])),
		Depth: v[4],
	}, nil
}

// Lookup returns the entry for key.
func (b *Book) Lookup(key uint64) (Entry, bool) {
	if b == nil {
		return Entry{}, false
	}
	v, err := b.st.Get(dbKey(key))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.log.Warn().Err(err).Uint64("key", key).Msg("book lookup failed")
		}
		return Entry{}, false
	}
	e, err := decode(v)
	if err != nil {
		b.log.Warn().Err(err).Uint64("key", key).Msg("corrupt book entry")
		return Entry{}, false
	}
	return e, true
}

// Add records e for key unless a deeper entry is already stored. It
// reports whether e was written.
func (b *Book) Add(key uint64, e Entry) (bool, error) {
	written := false
	err := b.st.Update(func(txn *badger.Txn) error {
		k := dbKey(key)
		item, err := txn.Get(k)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var old Entry
			if err := item.Value(func(v []byte) error {
				old, err = decode(v)
				return err
			}); err != nil {
				return err
			}
			if old.Depth > e.Depth {
				return nil
			}
		}
		written = true
		return txn.Set(k, encode(e))
	})
	return written, err
}

// AddPosition records a search result for pos.
func (b *Book) AddPosition(pos *board.Position, m board.Move, score, depth int) (bool, error) {
	if !pos.IsLegal(m) {
		return false, fmt.Errorf("book: %w: %s in %s", board.ErrMove, m, pos.FEN())
	}
	score = min(max(score, -32767), 32767)
	written, err := b.Add(pos.Key(), Entry{Move: m, Score: int16(score), Depth: uint8(min(max(depth, 0), 255))})
	if err != nil || !written {
		return written, err
	}
	return true, b.touch("search", false)
}

// Remove deletes the entry for pos, if any.
func (b *Book) Remove(pos *board.Position) error {
	return b.st.Delete(dbKey(pos.Key()))
}

// Meta returns the book's metadata. A book that was never written has
// the zero Meta.
func (b *Book) Meta() (Meta, error) {
	var m Meta
	err := b.st.LoadJSON(metaKey, &m)
	return m, err
}

func (b *Book) touch(source string, imported bool) error {
	m, err := b.Meta()
	if err != nil {
		return err
	}
	m.Updated = time.Now().UTC()
	m.Source = source
	if imported {
		m.Imports++
	}
	return b.st.SaveJSON(metaKey, m)
}

// Len returns the number of stored positions.
func (b *Book) Len() (int, error) {
	return b.st.Count(keyPrefix)
}

// Export writes every entry to w as a zstd-compressed dump and returns
// the number of entries written.
func (b *Book) Export(w io.Writer) (int, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(zw)

	var hdr [5]byte
	copy(hdr[:], dumpMagic[:])
	hdr[4] = dumpVersion
	if _, err := bw.Write(hdr[:]); err != nil {
		zw.Close()
		return 0, err
	}

	n := 0
	err = b.st.Scan(keyPrefix, func(k, v []byte) error {
		if len(k) != len(keyPrefix)+8 || len(v) != valueSize {
			return fmt.Errorf("%w: record %x", ErrDump, k)
		}
		var rec [recordSize]byte
		copy(rec[:8], k[len(keyPrefix):])
		copy(rec[8:], v)
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
		n++
		return nil
	})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	b.log.Info().Int("entries", n).Msg("book exported")
	return n, nil
}

// Import merges a dump produced by Export. Entries overwrite stored ones
// for the same key.
func (b *Book) Import(r io.Reader) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	var hdr [5]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return 0, fmt.Errorf("%w: header: %v", ErrDump, err)
	}
	if [4]byte(hdr[:4]) != dumpMagic || hdr[4] != dumpVersion {
		return 0, fmt.Errorf("%w: bad header %x", ErrDump, hdr)
	}

	n := 0
	err = b.st.Batch(func(put func(k, v []byte) error) error {
		var rec [recordSize]byte
		for {
			_, err := io.ReadFull(br, rec[:])
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: record %d: %v", ErrDump, n, err)
			}
			if err := put(dbKey(binary.BigEndian.Uint64(rec[:8])), append([]byte(nil), rec[8:]...)); err != nil {
				return err
			}
			n++
		}
	})
	if err == nil {
		err = b.touch("import", true)
	}
	if err != nil {
		return 0, err
	}
	b.log.Info().Int("entries", n).Msg("book imported")
	return n, nil
}

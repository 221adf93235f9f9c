// Package bbolt provides a BBolt-backed journal.Store.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/vaultsession/journal"
)

var journalBucket = []byte("journal")

// Store implements journal.Store on a BBolt database. Keys are the
// bucket's sequence numbers, so cursor order is insertion order.
type Store struct {
	db         *bbolt.DB
	maxEntries int
}

var _ journal.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries prunes the oldest entries beyond n on every append.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

// NewStore returns a Store backed by the given BBolt database. A
// read-only database is used as is and lists as empty until written.
func NewStore(db *bbolt.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if db.IsReadOnly() {
		return s, nil
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(journalBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating journal bucket: %w", err)
	}
	return s, nil
}

// NewStoreFromFile opens a BBolt database at path and returns a Store.
func NewStoreFromFile(path string, options *bbolt.Options, opts ...Option) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewStore(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(_ context.Context, e journal.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(journalBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}
		if s.maxEntries > 0 && seq > uint64(s.maxEntries) {
			return prune(b, seq-uint64(s.maxEntries))
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context, limit int) ([]journal.Entry, error) {
	var entries []journal.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(journalBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var e journal.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding journal entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// prune deletes every entry whose sequence is at or below cutoff.
func prune(b *bbolt.Bucket, cutoff uint64) error {
	var stale [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= cutoff; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/snapbooth/internal/logging"
)

// ErrRevocationStoreClosed indicates the store has been closed.
var ErrRevocationStoreClosed = errors.New("revocation store is closed")

// RevocationStore is a denylist of logged-out token ids. Entries only need
// to live as long as the token they revoke.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}

// NewRevocationStore opens the configured store: "badger" persists at path,
// anything else keeps entries in memory.
func NewRevocationStore(kind, path string) (RevocationStore, error) {
	if kind != "badger" {
		return NewMemoryRevocationStore(), nil
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for revocations: %w", err)
	}
	return NewBadgerRevocationStore(db, true), nil
}

// MemoryRevocationStore keeps revocations in a map. Entries are lost on restart.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	closed  bool
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty in-memory store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke denylists jti for ttl.
func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrRevocationStoreClosed
	}

	now := s.now()
	for id, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, id)
		}
	}
	s.entries[jti] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether jti is denylisted and not yet expired.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrRevocationStoreClosed
	}
	exp, ok := s.entries[jti]
	return ok && !s.now().After(exp), nil
}

// Close releases the store.
func (s *MemoryRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}

// BadgerRevocationStore keeps revocations in BadgerDB with native TTLs, so
// logouts survive restarts.
type BadgerRevocationStore struct {
	db     *badger.DB
	owned  bool
	prefix []byte

	mu     sync.RWMutex
	closed bool
}

// NewBadgerRevocationStore wraps db. When owned is true Close also closes db.
func NewBadgerRevocationStore(db *badger.DB, owned bool) *BadgerRevocationStore {
	return &BadgerRevocationStore{db: db, owned: owned, prefix: []byte("revoked:")}
}

func (s *BadgerRevocationStore) key(jti string) []byte {
	return append(append([]byte{}, s.prefix...), jti...)
}

// Revoke denylists jti for ttl.
func (s *BadgerRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrRevocationStoreClosed
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(s.key(jti), []byte{1}).WithTTL(ttl))
	})
}

// IsRevoked reports whether jti is denylisted. Badger drops expired keys itself.
func (s *BadgerRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrRevocationStoreClosed
	}

	revoked := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	return revoked, err
}

// RunGC runs one value log garbage collection pass. ErrNoRewrite means
// there was nothing to reclaim.
func (s *BadgerRevocationStore) RunGC() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrRevocationStoreClosed
	}
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

// Close closes the store and, when owned, the database.
func (s *BadgerRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// GCService runs periodic badger garbage collection as a supervised service.
type GCService struct {
	store    *BadgerRevocationStore
	interval time.Duration
}

// NewGCService creates the service; interval defaults to 10 minutes.
func NewGCService(store *BadgerRevocationStore, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.store.RunGC(); err != nil {
				if errors.Is(err, ErrRevocationStoreClosed) {
					return err
				}
				logging.Warn().Err(err).Msg("Revocation store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (g *GCService) String() string {
	return "revocation-gc"
}

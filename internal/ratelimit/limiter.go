package ratelimit

import (
	"context"
	"log"
	"math"
	"sync"
	"time"
)

// Entry is a fixed-window counter for one key.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Store is the counter backend. The limiter only depends on this interface so
// the process-local map and a shared Redis deployment satisfy the same
// contract. Get returning false and Get returning an expired entry are
// treated identically by the limiter: both reset the window.
type Store interface {
	Get(key string) (Entry, bool)
	Put(key string, entry Entry)
	Sweep(now time.Time) int
}

// Limit configures one call site's quota. Quotas differ per endpoint, so the
// limiter is parameterized per call rather than globally.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Result is the outcome of a single Check.
type Result struct {
	Allowed        bool
	Remaining      int
	ResetInSeconds int
}

// Limiter implements fixed-window rate limiting over a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Key builds the canonical "{operation}:{userID}" counter key.
func Key(operation, userID string) string {
	return operation + ":" + userID
}

// Check records one request against key and reports whether it is allowed.
// It never fails: a missing or expired entry starts a fresh window.
func (l *Limiter) Check(key string, limit Limit) Result {
	now := l.now()

	entry, ok := l.store.Get(key)
	if !ok || now.After(entry.ResetAt) {
		l.store.Put(key, Entry{Count: 1, ResetAt: now.Add(limit.Window)})
		return Result{Allowed: true, Remaining: limit.MaxRequests - 1}
	}

	entry.Count++
	l.store.Put(key, entry)

	if entry.Count > limit.MaxRequests {
		resetIn := int(math.Ceil(entry.ResetAt.Sub(now).Seconds()))
		if resetIn < 1 {
			resetIn = 1
		}
		return Result{Allowed: false, Remaining: 0, ResetInSeconds: resetIn}
	}

	return Result{Allowed: true, Remaining: limit.MaxRequests - entry.Count}
}

// StartSweeper removes expired entries on a fixed interval to bound memory.
// Runs until the context is cancelled.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[RATELIMIT] Sweeper stopping...")
			return
		case <-ticker.C:
			if removed := l.store.Sweep(l.now()); removed > 0 {
				log.Printf("[RATELIMIT] Swept %d expired entries", removed)
			}
		}
	}
}

// MemoryStore is the default in-process Store. State is process-local: a
// multi-process deployment needs the Redis store for correct counting.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *MemoryStore) Put(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
}

func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.ResetAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

package state

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store maps user identifiers to conversation state. Entries idle longer
// than the TTL are evicted lazily on next access. Access to different keys
// never blocks; access to the same key is serialized through Do so duplicate
// message delivery cannot lose draft updates.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	mu    sync.Mutex
	state *State
	seen  time.Time
}

// NewStore builds a store whose entries expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// acquire returns the live entry for userID, evicting a stale one and
// creating a default when absent.
func (st *Store) acquire(userID string) *entry {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[userID]
	if ok && st.ttl > 0 && now.Sub(e.seen) > st.ttl {
		delete(st.entries, userID)
		ok = false
	}
	if !ok {
		e = &entry{state: New(userID), seen: now}
		st.entries[userID] = e
	}
	e.seen = now
	return e
}

// Get returns the state for userID, creating a default one if absent. A
// cache miss is indistinguishable from a fresh user.
func (st *Store) Get(userID string) *State {
	return st.acquire(userID).state
}

// Put replaces the state stored for userID.
func (st *Store) Put(userID string, s *State) {
	e := st.acquire(userID)
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Do runs fn with exclusive access to the state for userID. The per-entry
// lock serializes concurrent delivery for the same user while leaving other
// users untouched.
func (st *Store) Do(userID string, fn func(*State)) {
	e := st.acquire(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
}

// Invalidate evicts one entry. Evicting an absent key is a no-op, so the
// operation is idempotent.
func (st *Store) Invalidate(userID string) {
	st.mu.Lock()
	delete(st.entries, userID)
	st.mu.Unlock()
	log.Debug().Str("component", "state_store").Str("user_id", userID).Msg("cache entry invalidated")
}

// InvalidateAll evicts every entry. Used after writes with no single
// correlatable user, such as bulk user-table changes.
func (st *Store) InvalidateAll() {
	st.mu.Lock()
	st.entries = make(map[string]*entry)
	st.mu.Unlock()
	log.Debug().Str("component", "state_store").Msg("cache fully invalidated")
}

// Sweep evicts every entry idle longer than the TTL. Lazy eviction on
// access already keeps reads correct; a periodic sweep just frees memory
// held by users who never come back.
func (st *Store) Sweep() {
	if st.ttl <= 0 {
		return
	}
	now := st.now()
	st.mu.Lock()
	evicted := 0
	for userID, e := range st.entries {
		if now.Sub(e.seen) > st.ttl {
			delete(st.entries, userID)
			evicted++
		}
	}
	st.mu.Unlock()
	if evicted > 0 {
		log.Debug().Str("component", "state_store").Int("evicted", evicted).Msg("idle entries swept")
	}
}

// Len reports the number of live entries. Intended for stats and tests.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

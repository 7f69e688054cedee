// Package store holds the in-memory key-value data, replication info, and
// the set of channels used to fan write commands out to connected
// replicas.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"rediscore/internal/protocol"
	"rediscore/internal/rdb"
)

// Value is one stored entry: a string with an optional expiry instant.
type Value struct {
	Data      string
	ExpiresAt *time.Time
}

// Store is the process-wide key-value map plus replication bookkeeping.
type Store struct {
	mu   sync.Mutex
	data map[string]Value

	infoMu sync.Mutex
	info   Info

	replicasMu sync.Mutex
	replicas   []chan *protocol.Command
}

// New creates a store for a node acting in the given role ("master" or
// "slave"). The replication id is generated once and stable for the
// lifetime of the process.
func New(role string) *Store {
	return &Store{
		data: make(map[string]Value),
		info: Info{
			Role:   role,
			ReplID: uuid.New().String(),
			Offset: 0,
		},
	}
}

// Set stores value under key, replacing anything previously there.
func (s *Store) Set(key, value string, expiresAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = Value{Data: value, ExpiresAt: expiresAt}
}

// Get returns the value for key, lazily expiring it if its expiry instant
// has passed. A key is alive iff now is strictly before its expiry.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		return "", false
	}
	if v.ExpiresAt != nil && !time.Now().Before(*v.ExpiresAt) {
		delete(s.data, key)
		return "", false
	}
	return v.Data, true
}

// Keys returns every key currently stored. The pattern argument is
// accepted but ignored, matching the upstream behavior this core mirrors.
func (s *Store) Keys(_ string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Info returns a snapshot of the current replication info.
func (s *Store) Info() Info {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.info
}

// RegisterReplica adds ch to the set of channels written to on every
// broadcast write command.
func (s *Store) RegisterReplica(ch chan *protocol.Command) {
	s.replicasMu.Lock()
	defer s.replicasMu.Unlock()
	s.replicas = append(s.replicas, ch)
	s.infoMu.Lock()
	s.info.ConnectedSlaves++
	s.infoMu.Unlock()
}

// Replicas returns a snapshot copy of the currently registered replica
// channels.
func (s *Store) Replicas() []chan *protocol.Command {
	s.replicasMu.Lock()
	defer s.replicasMu.Unlock()
	out := make([]chan *protocol.Command, len(s.replicas))
	copy(out, s.replicas)
	return out
}

// LoadEntries replaces the store's contents with entries in one atomic
// step: the store is only ever replaced wholesale on a successful decode,
// never mutated key-by-key while a snapshot load is still in progress.
func (s *Store) LoadEntries(entries []rdb.Entry) {
	data := make(map[string]Value, len(entries))
	for _, e := range entries {
		data[e.Key] = Value{Data: e.Value, ExpiresAt: e.ExpiresAt}
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

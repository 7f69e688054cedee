// Package wire provides the mutex-guarded writer shared between a
// connection's own reply path and the replication broadcast worker that
// may write to the same socket concurrently.
package wire

import (
	"bufio"
	"sync"

	"rediscore/internal/protocol"
)

// SyncWriter serializes concurrent writers of RESP frames onto one
// buffered connection.
type SyncWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w *bufio.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

// WriteFrame encodes and flushes f, holding the lock for the duration so
// concurrent writers never interleave bytes on the wire.
func (s *SyncWriter) WriteFrame(f *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.WriteFrame(s.w, f)
}

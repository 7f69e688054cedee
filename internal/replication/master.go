// Package replication implements both sides of the full-resync-only
// replication protocol: the master's broadcast fan-out and the slave's
// handshake-and-follow loop.
package replication

import (
	"github.com/sirupsen/logrus"

	"rediscore/internal/protocol"
	"rediscore/internal/store"
	"rediscore/internal/wire"
)

// Master owns the broadcast side of replication: it wires itself into
// the dispatcher so every write command observed on this node is fanned
// out to currently-registered replica channels.
type Master struct {
	store *store.Store
}

// NewMaster creates a Master over s. Call Broadcast from
// dispatch.Dispatcher.SetBroadcast to wire it in.
func NewMaster(s *store.Store) *Master {
	return &Master{store: s}
}

// Broadcast fans cmd out to every currently registered replica channel.
// When a replica's channel is full the command is logged and dropped for
// that replica. Replicas are never removed: one whose broadcast loop has
// ended stays registered, its buffer fills with commands nobody drains, and
// once full every further send to it is logged and dropped.
func (m *Master) Broadcast(cmd *protocol.Command) {
	for _, ch := range m.store.Replicas() {
		select {
		case ch <- cmd:
		default:
			logrus.Warnf("replication: replica channel full, dropping command")
		}
	}
}

// RegisterFullResync is called once a connection's PSYNC has been
// answered with a FULLRESYNC reply: the connection is now a replica, and
// this spawns the goroutine that drains its dedicated channel onto the
// shared writer for as long as the connection stays open.
func (m *Master) RegisterFullResync(w *wire.SyncWriter) {
	ch := make(chan *protocol.Command, 256)
	m.store.RegisterReplica(ch)

	go m.broadcastLoop(ch, w)
}

func (m *Master) broadcastLoop(ch chan *protocol.Command, w *wire.SyncWriter) {
	logrus.Debug("replication: starting master to replica broadcast loop")
	for cmd := range ch {
		frame, err := cmd.ToFrame()
		if err != nil {
			logrus.Warnf("replication: unable to encode command for replica: %v", err)
			continue
		}
		if err := w.WriteFrame(frame); err != nil {
			logrus.Warnf("replication: replica write failed, ending broadcast loop: %v", err)
			return
		}
	}
}

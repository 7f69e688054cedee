package replication

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"rediscore/internal/config"
	"rediscore/internal/dispatch"
	"rediscore/internal/protocol"
	"rediscore/internal/rdb"
	"rediscore/internal/rediserr"
	"rediscore/internal/store"
)

// Slave drives the replica side: the handshake with a master, the
// snapshot load that follows it, and the subsequent command stream.
type Slave struct {
	cfg        *config.Config
	store      *store.Store
	dispatcher *dispatch.Dispatcher
}

// NewSlave creates a Slave. Start is a no-op unless cfg.IsReplica().
func NewSlave(cfg *config.Config, s *store.Store, d *dispatch.Dispatcher) *Slave {
	return &Slave{cfg: cfg, store: s, dispatcher: d}
}

// Start connects to the configured master and, once handshake and
// snapshot load succeed, spawns the background loop that follows the
// master's command stream.
func (sl *Slave) Start() error {
	if !sl.cfg.IsReplica() {
		logrus.Debug("replication: no replicaof set, this is a master node")
		return nil
	}

	addr := strings.Replace(strings.TrimSpace(sl.cfg.ReplicaOf), " ", ":", 1)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return rediserr.IOErr(err)
	}

	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)

	if err := sl.handshake(w, r); err != nil {
		return err
	}

	go sl.followMasterLoop(r)
	return nil
}

func (sl *Slave) handshake(w *bufio.Writer, r *bufio.Reader) error {
	if err := sl.sendAndDiscard(w, r, protocol.NewPing()); err != nil {
		return err
	}
	if err := sl.sendAndDiscard(w, r, protocol.NewReplconf("listening-port", strconv.Itoa(sl.cfg.Port))); err != nil {
		return err
	}
	if err := sl.sendAndDiscard(w, r, protocol.NewReplconf("capa", "psync2")); err != nil {
		return err
	}

	frame, err := protocol.NewPsync().ToFrame()
	if err != nil {
		return err
	}
	if err := protocol.WriteFrame(w, frame); err != nil {
		return err
	}

	response, err := protocol.ReadFrame(r)
	if err != nil {
		return err
	}
	if response.Kind != protocol.KindSimpleString {
		return rediserr.UnsupportedErr("unexpected master reply to PSYNC")
	}
	if !strings.HasPrefix(strings.ToUpper(response.Str), "FULLRESYNC") {
		return rediserr.UnsupportedErr("expected FULLRESYNC, got " + response.Str)
	}

	return sl.loadSnapshot(r)
}

func (sl *Slave) sendAndDiscard(w *bufio.Writer, r *bufio.Reader, cmd *protocol.Command) error {
	frame, err := cmd.ToFrame()
	if err != nil {
		return err
	}
	if err := protocol.WriteFrame(w, frame); err != nil {
		return err
	}
	_, err = protocol.ReadFrame(r)
	return err
}

// loadSnapshot reads the length-prefixed line ("$<n>") followed by
// exactly n raw snapshot bytes that accompany a FULLRESYNC reply, then
// decodes and installs it.
func (sl *Slave) loadSnapshot(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return rediserr.IOErr(err)
	}
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimPrefix(line, "$")

	n, err := strconv.Atoi(line)
	if err != nil {
		return rediserr.ParserErr(err)
	}

	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return rediserr.IOErr(err)
	}

	entries, err := rdb.Decode(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	sl.store.LoadEntries(entries)
	return nil
}

// followMasterLoop continuously parses and dispatches commands from the
// master's stream. Dispatch naturally does not rebroadcast, since this
// node's role is "slave", not "master".
func (sl *Slave) followMasterLoop(r *bufio.Reader) {
	logrus.Debug("replication: starting slave follow loop")
	for {
		cmd, err := protocol.ParseCommand(r)
		if err != nil {
			if rediserr.IsIO(err) {
				logrus.Warnf("replication: connection to master failed: %v", err)
				return
			}
			logrus.Warnf("replication: unable to parse command from master: %v", err)
			continue
		}
		if cmd.Verb == protocol.VerbConnectionClosed {
			logrus.Debug("replication: master closed the connection")
			return
		}
		if _, err := sl.dispatcher.Dispatch(cmd); err != nil {
			logrus.Warnf("replication: error executing command from master: %v", err)
		}
	}
}

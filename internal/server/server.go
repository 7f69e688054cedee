// Package server implements the TCP connection loop: one goroutine per
// client connection, each reading and dispatching commands off a shared
// store.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rediscore/internal/config"
	"rediscore/internal/dispatch"
	"rediscore/internal/protocol"
	"rediscore/internal/rdb"
	"rediscore/internal/rediserr"
	"rediscore/internal/replication"
	"rediscore/internal/store"
	"rediscore/internal/wire"
)

// Server accepts client connections and dispatches commands against a
// shared store.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	master     *replication.Master

	listener net.Listener
	wg       sync.WaitGroup
}

// New constructs a Server wired to cfg. The store's role is derived from
// whether cfg configures a replicaof target.
func New(cfg *config.Config) *Server {
	role := "master"
	if cfg.IsReplica() {
		role = "slave"
	}

	s := store.New(role)
	d := dispatch.New(s, cfg)
	m := replication.NewMaster(s)
	d.SetBroadcast(m.Broadcast)

	return &Server{cfg: cfg, store: s, dispatcher: d, master: m}
}

// LoadSnapshot loads the configured snapshot file into the store, if one
// is configured and present. A missing file is not an error: the store
// is left empty and startup proceeds.
func (s *Server) LoadSnapshot() error {
	path, ok := s.cfg.SnapshotPath()
	if !ok {
		logrus.Debug("server: no snapshot file configured")
		return nil
	}

	start := time.Now()
	entries, err := rdb.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if entries == nil {
		logrus.Debugf("server: no snapshot found at %s", path)
		return nil
	}

	s.store.LoadEntries(entries)
	logrus.Infof("server: snapshot loaded: %d keys restored in %v", len(entries), time.Since(start))
	return nil
}

// StartReplication connects to the configured master, if any.
func (s *Server) StartReplication() error {
	slave := replication.NewSlave(s.cfg, s.store, s.dispatcher)
	return slave.Start()
}

// ListenAndServe binds the configured address and serves connections
// until lis is closed.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.listener = lis
	logrus.Infof("server: listening on %s", addr)

	for {
		conn, err := lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			logrus.Warnf("server: accept error: %v", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown closes the listener, causing ListenAndServe to return once
// in-flight connections finish.
func (s *Server) Shutdown() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logrus.Debugf("server: connection opened from %s", conn.RemoteAddr())

	r := bufio.NewReader(conn)
	writer := wire.NewSyncWriter(bufio.NewWriter(conn))

	for {
		cmd, err := protocol.ParseCommand(r)
		if err != nil {
			if rediserr.IsIO(err) {
				logrus.Warnf("server: connection to %s failed: %v", conn.RemoteAddr(), err)
				return
			}
			logrus.Warnf("server: error parsing command from %s: %v", conn.RemoteAddr(), err)
			continue
		}
		if cmd.Verb == protocol.VerbConnectionClosed {
			logrus.Debugf("server: connection closed by %s", conn.RemoteAddr())
			return
		}

		frame, err := s.dispatcher.Dispatch(cmd)
		if err != nil {
			logrus.Warnf("server: error executing command from %s: %v", conn.RemoteAddr(), err)
			continue
		}

		if err := writer.WriteFrame(frame); err != nil {
			logrus.Warnf("server: write error to %s: %v", conn.RemoteAddr(), err)
			return
		}

		if cmd.Verb == protocol.VerbPsync {
			s.master.RegisterFullResync(writer)
		}
	}
}

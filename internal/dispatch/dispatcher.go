// Package dispatch executes parsed commands against the store, producing
// the reply frame and (on a master) broadcasting writes to replicas.
package dispatch

import (
	"strconv"
	"strings"
	"time"

	"rediscore/internal/config"
	"rediscore/internal/protocol"
	"rediscore/internal/rdb"
	"rediscore/internal/rediserr"
	"rediscore/internal/store"
)

// Dispatcher wires the store and config to command execution.
type Dispatcher struct {
	Store     *store.Store
	Config    *config.Config
	broadcast func(*protocol.Command)
}

// New creates a Dispatcher over s and cfg.
func New(s *store.Store, cfg *config.Config) *Dispatcher {
	return &Dispatcher{Store: s, Config: cfg}
}

// SetBroadcast installs the function used to fan write commands out to
// replicas. It is set after construction because the replication master
// is wired up once the dispatcher (and its store) already exist.
func (d *Dispatcher) SetBroadcast(fn func(*protocol.Command)) {
	d.broadcast = fn
}

// Dispatch executes cmd and returns the reply frame.
func (d *Dispatcher) Dispatch(cmd *protocol.Command) (*protocol.Frame, error) {
	if cmd.IsWrite() && d.Store.Info().IsMaster() && d.broadcast != nil {
		d.broadcast(cmd)
	}

	switch cmd.Verb {
	case protocol.VerbConnectionClosed:
		return protocol.ConnectionClosed(), nil
	case protocol.VerbPing:
		return protocol.SimpleString("PONG"), nil
	case protocol.VerbEcho:
		return d.echo(cmd.Args)
	case protocol.VerbGet:
		return d.get(cmd.Args)
	case protocol.VerbSet:
		return d.set(cmd.Args)
	case protocol.VerbConfig:
		return d.config(cmd.Args)
	case protocol.VerbCommand:
		return protocol.BulkString(""), nil
	case protocol.VerbKeys:
		return d.keys(cmd.Args)
	case protocol.VerbInfo:
		return d.info(cmd.Args)
	case protocol.VerbReplconf:
		return protocol.OKResponse(), nil
	case protocol.VerbPsync:
		return d.psync()
	default:
		return nil, rediserr.UnsupportedErr("unknown verb")
	}
}

func (d *Dispatcher) echo(args []*protocol.Frame) (*protocol.Frame, error) {
	if len(args) == 0 {
		return nil, rediserr.InvalidRespErr("ECHO requires one argument")
	}
	s, err := protocol.AsString(args[0])
	if err != nil {
		return nil, err
	}
	return protocol.BulkString(s), nil
}

func (d *Dispatcher) get(args []*protocol.Frame) (*protocol.Frame, error) {
	if len(args) == 0 {
		return nil, rediserr.UnsupportedErr("unexpected GET args")
	}
	key, err := protocol.AsString(args[0])
	if err != nil {
		return nil, err
	}
	v, ok := d.Store.Get(key)
	if !ok {
		return protocol.NullBulkString(), nil
	}
	return protocol.BulkString(v), nil
}

// set implements SET key value [PX milliseconds].
func (d *Dispatcher) set(args []*protocol.Frame) (*protocol.Frame, error) {
	if len(args) < 2 {
		return nil, rediserr.UnsupportedErr("unexpected SET args")
	}
	key, err := protocol.AsString(args[0])
	if err != nil {
		return nil, err
	}
	value, err := protocol.AsString(args[1])
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if len(args) >= 4 {
		opt, err := protocol.AsString(args[2])
		if err != nil {
			return nil, err
		}
		if strings.ToUpper(opt) != "PX" {
			return nil, rediserr.UnsupportedErr("unsupported SET option " + opt)
		}
		msStr, err := protocol.AsString(args[3])
		if err != nil {
			return nil, err
		}
		ms, err := strconv.ParseInt(msStr, 10, 64)
		if err != nil {
			return nil, rediserr.ParserErr(err)
		}
		t := time.Now().Add(time.Duration(ms) * time.Millisecond)
		expiresAt = &t
	}

	d.Store.Set(key, value, expiresAt)
	return protocol.OKResponse(), nil
}

func (d *Dispatcher) keys(args []*protocol.Frame) (*protocol.Frame, error) {
	if len(args) == 0 {
		return nil, rediserr.UnsupportedErr("unexpected KEYS args")
	}
	pattern, err := protocol.AsString(args[0])
	if err != nil {
		return nil, err
	}
	keys := d.Store.Keys(pattern)
	items := make([]*protocol.Frame, len(keys))
	for i, k := range keys {
		items[i] = protocol.BulkString(k)
	}
	return protocol.Array(items), nil
}

func (d *Dispatcher) info(args []*protocol.Frame) (*protocol.Frame, error) {
	if len(args) == 0 {
		return nil, rediserr.ArgsMissingErr("arg missing in info command")
	}
	return protocol.BulkString(d.Store.Info().String()), nil
}

func (d *Dispatcher) config(args []*protocol.Frame) (*protocol.Frame, error) {
	if len(args) < 2 {
		return nil, rediserr.InvalidRespErr("CONFIG requires sub-command and key")
	}
	sub, err := protocol.AsString(args[0])
	if err != nil {
		return nil, err
	}
	key, err := protocol.AsString(args[1])
	if err != nil {
		return nil, err
	}

	var value string
	var ok bool
	switch {
	case strings.ToUpper(sub) == "GET" && key == "dir":
		value, ok = d.Config.Dir, d.Config.Dir != ""
	case strings.ToUpper(sub) == "GET" && key == "dbfilename":
		value, ok = d.Config.DBFilename, d.Config.DBFilename != ""
	default:
		return nil, rediserr.UnsupportedErr("unsupported CONFIG sub-command " + sub)
	}

	if !ok {
		return protocol.NullBulkString(), nil
	}
	return protocol.Array([]*protocol.Frame{protocol.BulkString(key), protocol.BulkString(value)}), nil
}

// psync answers the handshake-terminal PSYNC with a FULLRESYNC reply
// carrying either the configured snapshot file's bytes or the built-in
// empty database.
func (d *Dispatcher) psync() (*protocol.Frame, error) {
	var data []byte
	if path, ok := d.Config.SnapshotPath(); ok {
		b, err := readSnapshotBytes(path)
		if err != nil {
			return nil, err
		}
		data = b
	} else {
		data = rdb.EmptyDB()
	}

	info := d.Store.Info()
	inner := protocol.SimpleString("FULLRESYNC " + info.ReplID + " 0")
	return protocol.FullResyncBinary(inner, data), nil
}

package protocol

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"rediscore/internal/rediserr"
)

// Verb discriminates the closed set of commands this core understands.
type Verb int

const (
	VerbConnectionClosed Verb = iota
	VerbPing
	VerbEcho
	VerbSet
	VerbGet
	VerbConfig
	VerbCommand
	VerbKeys
	VerbInfo
	VerbReplconf
	VerbPsync
)

var verbTable = map[string]Verb{
	"ECHO":     VerbEcho,
	"PING":     VerbPing,
	"SET":      VerbSet,
	"GET":      VerbGet,
	"CONFIG":   VerbConfig,
	"COMMAND":  VerbCommand,
	"KEYS":     VerbKeys,
	"INFO":     VerbInfo,
	"REPLCONF": VerbReplconf,
	"PSYNC":    VerbPsync,
}

// Command is a verb plus its argument frames, the parsed form of a
// client/replication request.
type Command struct {
	Verb Verb
	Args []*Frame
}

// IsWrite reports whether executing cmd mutates the store, i.e. whether a
// master must broadcast it to connected replicas.
func (c *Command) IsWrite() bool {
	return c.Verb == VerbSet
}

// ParseCommand reads one command off r. Requests are either a RESP array
// or a bare byte that isn't '*', which this core treats as an inline
// command and answers as if it were PING (original_source leaves inline
// commands unimplemented and falls back the same way).
func ParseCommand(r *bufio.Reader) (*Command, error) {
	b, err := r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Command{Verb: VerbConnectionClosed}, nil
		}
		return nil, rediserr.IOErr(err)
	}

	if b != '*' {
		return &Command{Verb: VerbPing}, nil
	}

	if err := r.UnreadByte(); err != nil {
		return nil, rediserr.IOErr(err)
	}
	frame, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if frame.Kind != KindArray {
		return nil, rediserr.InvalidRespErr("expected array for command")
	}
	if len(frame.Items) == 0 {
		return nil, rediserr.InvalidRespErr("empty command array")
	}

	head := frame.Items[0]
	if head.Kind != KindBulkString {
		return nil, rediserr.InvalidRespErr("command name must be a bulk string")
	}

	verb, ok := verbTable[strings.ToUpper(head.Str)]
	if !ok {
		return nil, rediserr.UnsupportedErr(head.Str)
	}

	return &Command{Verb: verb, Args: frame.Items[1:]}, nil
}

// ToFrame re-encodes a command for forwarding over the wire, used by the
// replication handshake (PING/REPLCONF/PSYNC) and by master->replica
// broadcast (SET only — the only write command in this core).
func (c *Command) ToFrame() (*Frame, error) {
	bulk := func(s string) *Frame { return BulkString(s) }

	switch c.Verb {
	case VerbPing:
		return Array([]*Frame{bulk("PING")}), nil
	case VerbReplconf:
		items := append([]*Frame{bulk("REPLCONF")}, c.Args...)
		return Array(items), nil
	case VerbPsync:
		items := append([]*Frame{bulk("PSYNC")}, c.Args...)
		return Array(items), nil
	case VerbSet:
		items := append([]*Frame{bulk("SET")}, c.Args...)
		return Array(items), nil
	default:
		return nil, rediserr.UnsupportedErr("command cannot be encoded")
	}
}

// NewReplconf builds a REPLCONF command with the given bulk-string args.
func NewReplconf(args ...string) *Command {
	return &Command{Verb: VerbReplconf, Args: stringsToFrames(args)}
}

// NewPsync builds the handshake-terminal PSYNC ? -1 command.
func NewPsync() *Command {
	return &Command{Verb: VerbPsync, Args: stringsToFrames([]string{"?", "-1"})}
}

// NewPing builds a bare PING command.
func NewPing() *Command {
	return &Command{Verb: VerbPing}
}

func stringsToFrames(args []string) []*Frame {
	frames := make([]*Frame, len(args))
	for i, a := range args {
		frames[i] = BulkString(a)
	}
	return frames
}

package dispatch

import (
	"strings"
	"testing"

	"rediscore/internal/config"
	"rediscore/internal/protocol"
	"rediscore/internal/store"
)

func newTestDispatcher() *Dispatcher {
	return New(store.New("master"), &config.Config{})
}

func TestDispatchPing(t *testing.T) {
	d := newTestDispatcher()
	f, err := d.Dispatch(protocol.NewPing())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if f.Kind != protocol.KindSimpleString || f.Str != "PONG" {
		t.Fatalf("got %+v", f)
	}
}

func TestDispatchSetThenGet(t *testing.T) {
	d := newTestDispatcher()
	setCmd := &protocol.Command{Verb: protocol.VerbSet, Args: []*protocol.Frame{
		protocol.BulkString("foo"), protocol.BulkString("bar"),
	}}
	if _, err := d.Dispatch(setCmd); err != nil {
		t.Fatalf("SET: %v", err)
	}

	getCmd := &protocol.Command{Verb: protocol.VerbGet, Args: []*protocol.Frame{protocol.BulkString("foo")}}
	f, err := d.Dispatch(getCmd)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if f.Kind != protocol.KindBulkString || f.Str != "bar" {
		t.Fatalf("got %+v", f)
	}
}

func TestDispatchGetMissingReturnsNullBulkString(t *testing.T) {
	d := newTestDispatcher()
	getCmd := &protocol.Command{Verb: protocol.VerbGet, Args: []*protocol.Frame{protocol.BulkString("missing")}}
	f, err := d.Dispatch(getCmd)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if f.Kind != protocol.KindNullBulkString {
		t.Fatalf("got %+v", f)
	}
}

func TestDispatchPsyncUsesStableReplID(t *testing.T) {
	d := newTestDispatcher()
	f, err := d.Dispatch(&protocol.Command{Verb: protocol.VerbPsync})
	if err != nil {
		t.Fatalf("PSYNC: %v", err)
	}
	if f.Kind != protocol.KindFullResyncBinary {
		t.Fatalf("got %+v", f)
	}
	want := "FULLRESYNC " + d.Store.Info().ReplID + " 0"
	if f.Inner.Str != want {
		t.Fatalf("got %q want %q", f.Inner.Str, want)
	}
	if len(f.Raw) == 0 {
		t.Fatalf("expected non-empty snapshot bytes")
	}
}

func TestDispatchInfoReportsRole(t *testing.T) {
	d := newTestDispatcher()
	f, err := d.Dispatch(&protocol.Command{Verb: protocol.VerbInfo, Args: []*protocol.Frame{protocol.BulkString("replication")}})
	if err != nil {
		t.Fatalf("INFO: %v", err)
	}
	if f.Kind != protocol.KindBulkString {
		t.Fatalf("got %+v", f)
	}
	if !strings.Contains(f.Str, "\nrole:master\n") {
		t.Fatalf("INFO reply %q does not report role:master", f.Str)
	}
}

func TestDispatchWriteBroadcastsOnMaster(t *testing.T) {
	d := newTestDispatcher()
	var broadcast []*protocol.Command
	d.SetBroadcast(func(c *protocol.Command) { broadcast = append(broadcast, c) })

	setCmd := &protocol.Command{Verb: protocol.VerbSet, Args: []*protocol.Frame{
		protocol.BulkString("foo"), protocol.BulkString("bar"),
	}}
	if _, err := d.Dispatch(setCmd); err != nil {
		t.Fatalf("SET: %v", err)
	}
	if len(broadcast) != 1 {
		t.Fatalf("expected SET to be broadcast, got %d", len(broadcast))
	}
}

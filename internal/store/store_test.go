package store

import (
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New("master")
	s.Set("foo", "bar", nil)
	v, ok := s.Get("foo")
	if !ok || v != "bar" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := New("master")
	_, ok := s.Get("missing")
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestGetExpiredKeyIsLazilyRemoved(t *testing.T) {
	s := New("master")
	past := time.Now().Add(-time.Second)
	s.Set("foo", "bar", &past)

	_, ok := s.Get("foo")
	if ok {
		t.Fatalf("expired key should not be returned")
	}
	if len(s.Keys("*")) != 0 {
		t.Fatalf("expired key should have been deleted")
	}
}

func TestGetAtExactExpiryIsExpired(t *testing.T) {
	s := New("master")
	now := time.Now()
	s.Set("foo", "bar", &now)
	time.Sleep(time.Millisecond)

	_, ok := s.Get("foo")
	if ok {
		t.Fatalf("key at or past expiry instant must be considered expired")
	}
}

func TestInfoStableReplIDAcrossCalls(t *testing.T) {
	s := New("master")
	a := s.Info().ReplID
	b := s.Info().ReplID
	if a != b || a == "" {
		t.Fatalf("replid must be stable and non-empty, got %q and %q", a, b)
	}
}

func TestInfoStringFieldOrder(t *testing.T) {
	s := New("master")
	info := s.Info()
	want := "# Replication\nrole:master\nmaster_replid:" + info.ReplID + "\nconnected_slaves:0\nmaster_repl_offset:0\n"
	if info.String() != want {
		t.Fatalf("got %q want %q", info.String(), want)
	}
}

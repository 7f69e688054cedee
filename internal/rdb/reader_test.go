package rdb

import (
	"bytes"
	"testing"
)

func TestDecodeEmptyDB(t *testing.T) {
	entries, err := Decode(bytes.NewReader(EmptyDB()))
	if err != nil {
		t.Fatalf("Decode(EmptyDB()): %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestLoadMissingFileIsEmptyNotError(t *testing.T) {
	entries, err := Load("/nonexistent/path/dump.rdb")
	if err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil entries, got %+v", entries)
	}
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("NOTRDB000")))
	if err == nil {
		t.Fatalf("expected error for bad header")
	}
}

func TestReadLength14Bit(t *testing.T) {
	// 0x42 0xBC encodes length 700 per the RDB length-encoding spec.
	n, isString, err := readLength(bytes.NewReader([]byte{0x42, 0xBC}))
	if err != nil {
		t.Fatalf("readLength: %v", err)
	}
	if !isString || n != 700 {
		t.Fatalf("got n=%d isString=%v, want 700/true", n, isString)
	}
}

func TestReadLength6Bit(t *testing.T) {
	n, isString, err := readLength(bytes.NewReader([]byte{0x0A}))
	if err != nil {
		t.Fatalf("readLength: %v", err)
	}
	if !isString || n != 10 {
		t.Fatalf("got n=%d isString=%v, want 10/true", n, isString)
	}
}

func TestReadLength32Bit(t *testing.T) {
	n, isString, err := readLength(bytes.NewReader([]byte{0x80, 0x00, 0x00, 0x42, 0x68}))
	if err != nil {
		t.Fatalf("readLength: %v", err)
	}
	if !isString || n != 17000 {
		t.Fatalf("got n=%d isString=%v, want 17000/true", n, isString)
	}
}

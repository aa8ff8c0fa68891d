/*
NAME
  events_test.go
*/

package flightlog

import (
	"testing"

	"github.com/ausocean/blackbox/bytestream"
)

func TestDecodeEventSyncBeep(t *testing.T) {
	var data []byte
	data = append(data, eventIDSyncBeep)
	data = vbEncode(data, 12345)
	s := newTestStream(data)
	ev, ok := decodeEvent(s)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if ev.Kind != EventSyncBeep || ev.SyncBeep.Time != 12345 {
		t.Errorf("got %+v", ev)
	}
}

func TestDecodeEventUnknownID(t *testing.T) {
	s := newTestStream([]byte{0x77})
	_, ok := decodeEvent(s)
	if ok {
		t.Fatal("expected ok=false for unrecognized event ID")
	}
}

// S6 — LOG_END clamp: the terminator clamps the stream's effective end.
func TestDecodeEventLogEndClampsStreamEnd(t *testing.T) {
	data := append([]byte{eventIDLogEnd}, []byte("End of log\x00")...)
	data = append(data, "TRAILING GARBAGE"...)
	s := newTestStream(data)
	wantEnd := 1 + len(logEndLiteral) // event ID byte + the literal itself.
	ev, ok := decodeEvent(s)
	if !ok || ev.Kind != EventLogEnd {
		t.Fatalf("expected a recognized LOG_END event, got ok=%v ev=%+v", ok, ev)
	}
	if s.End() != wantEnd {
		t.Errorf("stream End() = %d, want %d (clamped past the literal, excluding trailing garbage)", s.End(), wantEnd)
	}
	if s.ReadChar() != bytestream.EOF {
		t.Error("expected EOF immediately after the clamp")
	}
}

func TestDecodeEventLogEndMismatchIsDesync(t *testing.T) {
	data := append([]byte{eventIDLogEnd}, []byte("not the terminator!!")...)
	s := newTestStream(data)
	_, ok := decodeEvent(s)
	if ok {
		t.Fatal("expected ok=false for a mismatched LOG_END literal")
	}
}

func TestDecodeEventAutotuneCycleStart(t *testing.T) {
	data := []byte{eventIDAutotuneCycleStart, 2, 0x85 /* cycle=5, rising */, 10, 20, 30}
	s := newTestStream(data)
	ev, ok := decodeEvent(s)
	if !ok {
		t.Fatal("expected ok=true")
	}
	want := EventAutotuneCycleStartData{Phase: 2, Cycle: 5, Rising: true, P: 10, I: 20, D: 30}
	if ev.AutotuneStart != want {
		t.Errorf("got %+v, want %+v", ev.AutotuneStart, want)
	}
}

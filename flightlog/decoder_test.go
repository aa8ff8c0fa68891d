/*
NAME
  decoder_test.go

DESCRIPTION
  decoder_test.go exercises the Decoder end to end: header discovery followed
  by I/P frame decoding, corruption recovery, truncation handling and the
  golden re-parse idempotence law (spec.md §8, Testable Properties 5, 8, 9,
  10; scenarios S2, S5).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package flightlog

import (
	"testing"

	"github.com/ausocean/blackbox/bytestream"
)

// basicHeader returns a minimal three-field (iteration, time, motor[0])
// schema: I frames carry raw unsigned VB values, P frames predict iteration
// via INC and time/motor[0] via PREVIOUS, sampling P at 1/4 of a 32-iteration
// I period (the same configuration as spec.md's S2 scenario).
func basicHeader() []byte {
	return header(
		"Field I name:iteration,time,motor[0]",
		"Field I predictor:0,0,0",
		"Field I encoding:1,1,1",
		"Field P predictor:6,1,1",
		"Field P encoding:1,1,1",
		"I interval:32",
		"P interval:1/4",
	)
}

// encodeIntra appends an I-frame tag and its unsigned-VB-encoded field
// values (predictor NONE means the raw values are the decoded ones).
func encodeIntra(buf []byte, iteration, time, motor uint32) []byte {
	buf = append(buf, byte(FrameIntra))
	buf = vbEncode(buf, iteration)
	buf = vbEncode(buf, time)
	buf = vbEncode(buf, motor)
	return buf
}

// encodeInter appends a P-frame tag; iteration is INC (no wire bytes), time
// and motor[0] carry raw unsigned-VB deltas against PREVIOUS.
func encodeInter(buf []byte, timeDelta, motorDelta uint32) []byte {
	buf = append(buf, byte(FrameInter))
	buf = vbEncode(buf, timeDelta)
	buf = vbEncode(buf, motorDelta)
	return buf
}

type recordedFrame struct {
	valid             bool
	frame             Frame
	typeTag           FrameType
	byteOffset, byteLength int
}

func runBasicLog(t *testing.T, data []byte) []recordedFrame {
	t.Helper()
	_, got := runBasicLogWithDecoder(t, data)
	return got
}

func runBasicLogWithDecoder(t *testing.T, data []byte) (*Decoder, []recordedFrame) {
	t.Helper()
	var got []recordedFrame
	d, err := NewDecoder(WithFrameSink(func(valid bool, f Frame, le LastEvent, ft FrameType, off, size int) {
		got = append(got, recordedFrame{valid, f, ft, off, size})
	}))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	s := bytestream.New(data)
	if err := d.ParseHeader(s); err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	ok, err := d.ParseLogData(s)
	if err != nil {
		t.Fatalf("ParseLogData: %v", err)
	}
	if !ok {
		t.Fatal("ParseLogData returned false")
	}
	return d, got
}

// S2 (end to end) — an I-frame followed by a P-frame whose INC-predicted
// iteration advances by (skipped+1) and whose PREVIOUS-predicted fields add
// onto the prior frame's values.
func TestDecodeBasicIntraThenInter(t *testing.T) {
	data := basicHeader()
	data = encodeIntra(data, 100, 1_000_000, 1500)
	data = encodeInter(data, 5000, 10)

	got := runBasicLog(t, data)
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2: %+v", len(got), got)
	}

	i := got[0]
	if !i.valid || i.typeTag != FrameIntra {
		t.Fatalf("I-frame: valid=%v type=%c, want valid type I", i.valid, i.typeTag)
	}
	wantI := []int32{100, 1_000_000, 1500}
	if !int32SliceEqual(i.frame.Values, wantI) {
		t.Errorf("I-frame values = %v, want %v", i.frame.Values, wantI)
	}

	p := got[1]
	if !p.valid || p.typeTag != FrameInter {
		t.Fatalf("P-frame: valid=%v type=%c, want valid type P", p.valid, p.typeTag)
	}
	wantP := []int32{104, 1_005_000, 1510} // iteration = 100+3+1, per S2.
	if !int32SliceEqual(p.frame.Values, wantP) {
		t.Errorf("P-frame values = %v, want %v", p.frame.Values, wantP)
	}
}

// Testable Property 1 & 8 — every accepted frame's byte range is <= 256
// bytes and the dispatcher accounts for every byte across frames and
// corruption.
func TestDecodeByteAccounting(t *testing.T) {
	data := basicHeader()
	headerLen := len(data)
	data = encodeIntra(data, 100, 1_000_000, 1500)
	data = encodeInter(data, 5000, 10)

	got := runBasicLog(t, data)
	var accounted int
	for _, f := range got {
		if f.byteLength > MaxFrameLength {
			t.Errorf("frame at %d exceeds MaxFrameLength: %d", f.byteOffset, f.byteLength)
		}
		accounted += f.byteLength
	}
	if want := len(data) - headerLen; accounted != want {
		t.Errorf("accounted %d payload bytes, want %d", accounted, want)
	}
}

// S5 — Corruption recovery: 300 junk bytes between two valid I-frames
// produce exactly one corrupt-frame notification, and decoding resumes
// cleanly afterward.
func TestDecodeCorruptionRecovery(t *testing.T) {
	data := basicHeader()
	data = encodeIntra(data, 100, 1_000_000, 1500)

	junk := make([]byte, 300)
	for i := range junk {
		junk[i] = 0xAB // not a recognized frame-type tag.
	}
	data = append(data, junk...)
	data = encodeIntra(data, 200, 2_000_000, 1600)

	d, got := runBasicLogWithDecoder(t, data)

	// The first I-frame's true end can't be confirmed until the dispatcher
	// sees a recognized tag follow it; since a junk byte follows instead, that
	// frame is itself reported corrupt and the resync rewind re-scans into
	// its own payload before finding the next junk run and then the second
	// I-frame's tag (spec.md §4.5, §9's second Open Question). Only one
	// corrupt notification fires regardless of how many junk bytes are
	// skipped while resynchronizing.
	var corrupt, validIntra int
	for _, f := range got {
		if f.typeTag == FrameIntra && !f.valid {
			corrupt++
		}
		if f.typeTag == FrameIntra && f.valid {
			validIntra++
		}
	}
	if corrupt != 1 {
		t.Errorf("corrupt notifications = %d, want 1", corrupt)
	}
	if validIntra != 1 {
		t.Errorf("valid I-frame notifications = %d, want 1 (the second, post-resync frame)", validIntra)
	}
	if d.Stats().TotalCorruptFrames != 1 {
		t.Errorf("stats.TotalCorruptFrames = %d, want 1", d.Stats().TotalCorruptFrames)
	}
}

// S10 — a truncated final frame (cut mid-payload) must still emit every
// complete prior frame plus exactly one corrupt notification for the
// truncated tail, and ParseLogData must still report success (corruption is
// reported via the sink, not as a Go error).
func TestDecodeTruncatedTailIsOneCorruptFrame(t *testing.T) {
	data := basicHeader()
	data = encodeIntra(data, 100, 1_000_000, 1500)
	full := encodeInter(append([]byte{}, data...), 5000, 10)
	truncated := full[:len(full)-1] // cut the last byte of the P-frame payload.

	got := runBasicLog(t, truncated)
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2 (one valid I, one corrupt tail): %+v", len(got), got)
	}
	if !got[0].valid || got[0].typeTag != FrameIntra {
		t.Fatalf("first frame = %+v, want valid I", got[0])
	}
	if got[1].valid {
		t.Fatalf("second frame should be the corrupt truncated tail, got valid=%v", got[1].valid)
	}
}

// Testable Property 5 & 9 — resetting state and reparsing the same log
// prefix yields byte-identical onFrameReady sequences. One decoder parses the
// log, then ResetState/ResetStats are called and the same bytes are replayed
// from just past the header.
func TestResetStateThenReparseIsIdempotent(t *testing.T) {
	data := basicHeader()
	data = encodeIntra(data, 100, 1_000_000, 1500)
	data = encodeInter(data, 5000, 10)
	data = encodeIntra(data, 200, 2_000_000, 1600)

	var got []recordedFrame
	d, err := NewDecoder(WithFrameSink(func(valid bool, f Frame, le LastEvent, ft FrameType, off, size int) {
		got = append(got, recordedFrame{valid, f, ft, off, size})
	}))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	s := bytestream.New(data)
	if err := d.ParseHeader(s); err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	headerEnd := s.Pos()
	if _, err := d.ParseLogData(s); err != nil {
		t.Fatalf("first ParseLogData: %v", err)
	}
	first := got

	got = nil
	d.ResetState()
	d.ResetStats()
	s.Seek(headerEnd)
	if _, err := d.ParseLogData(s); err != nil {
		t.Fatalf("second ParseLogData: %v", err)
	}
	second := got

	if len(first) != len(second) {
		t.Fatalf("first pass emitted %d frames, second emitted %d", len(first), len(second))
	}
	for i := range first {
		if first[i].valid != second[i].valid || first[i].typeTag != second[i].typeTag ||
			!int32SliceEqual(first[i].frame.Values, second[i].frame.Values) {
			t.Errorf("frame %d differs: first=%+v second=%+v", i, first[i], second[i])
		}
	}
}

// ResetState must put a decoder's running state back to exactly what it was
// immediately after ParseHeader, so that a second ParseLogData pass over the
// same bytes makes the same decisions as the first.
func TestResetStateRestoresPostHeaderState(t *testing.T) {
	d, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	s := bytestream.New(basicHeader())
	if err := d.ParseHeader(s); err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if d.lastMainIteration != -1 || d.haveLastMain {
		t.Fatalf("unexpected post-header state: lastMainIteration=%d haveLastMain=%v", d.lastMainIteration, d.haveLastMain)
	}

	d.lastMainIteration = 42
	d.haveLastMain = true
	d.mainStreamIsValid = true
	d.history.Current()[0] = 99

	d.ResetState()
	if d.lastMainIteration != -1 || d.haveLastMain || d.mainStreamIsValid {
		t.Fatalf("ResetState did not restore post-header defaults: iteration=%d haveLastMain=%v valid=%v",
			d.lastMainIteration, d.haveLastMain, d.mainStreamIsValid)
	}
	if d.history.Current()[0] != 0 {
		t.Fatalf("ResetState did not reallocate history, stale value = %d", d.history.Current()[0])
	}
}

// S3 (end to end) — a G-frame decoded after a committed H-frame adds the
// home coordinate via HOME_COORD/HOME_COORD_1, and is reported invalid
// before any home frame has committed.
func TestDecodeGPSFrameNeedsCommittedHome(t *testing.T) {
	data := header(
		"Field I name:iteration,time",
		"Field I predictor:0,0",
		"Field I encoding:1,1",
		"Field P predictor:6,1",
		"Field P encoding:1,1",
		"Field H name:GPS_home[0],GPS_home[1]",
		"Field H predictor:0,0",
		"Field H encoding:1,1",
		"Field G name:GPS_numSat,GPS_coord[0],GPS_coord[1]",
		"Field G predictor:0,7,7",
		"Field G encoding:1,0,0",
	)
	// GPS_coord fields use SIGNED_VB (encoding 0); numSat uses UNSIGNED_VB.
	gpsFrame := func(numSat uint32, latDelta, lonDelta int32) []byte {
		buf := []byte{byte(FrameGPS)}
		buf = vbEncode(buf, numSat)
		buf = svbEncode(buf, latDelta)
		buf = svbEncode(buf, lonDelta)
		return buf
	}

	data = append(data, gpsFrame(8, 5, 7)...) // before any home frame: invalid.

	data = append(data, byte(FrameHome))
	data = vbEncode(data, 37_000_000)
	homeLon := int32(-122_000_000)
	data = vbEncode(data, uint32(homeLon)) // two's-complement bits, read back as int32.

	data = append(data, gpsFrame(8, 5, 7)...) // after home commit: valid, HOME_COORD applied.

	got := runBasicLog(t, data)
	if len(got) != 3 {
		t.Fatalf("got %d frames, want 3: %+v", len(got), got)
	}

	if got[0].valid {
		t.Error("first G-frame should be invalid: no home frame has committed yet")
	}
	if !got[1].valid || got[1].typeTag != FrameHome {
		t.Fatalf("second frame should be a valid H-frame, got %+v", got[1])
	}
	if !got[2].valid {
		t.Fatal("third G-frame should be valid: home is now known")
	}
	want := []int32{8, 37_000_005, -121_999_993}
	if !int32SliceEqual(got[2].frame.Values, want) {
		t.Errorf("G-frame values = %v, want %v", got[2].frame.Values, want)
	}
}

func int32SliceEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

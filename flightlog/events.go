/*
NAME
  events.go

DESCRIPTION
  events.go decodes the E-frame event payloads (spec.md §4.6): sync beeps,
  autotune telemetry, and the LOG_END terminator that clamps the effective
  stream end.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package flightlog

import (
	"bytes"

	"github.com/ausocean/blackbox/bytestream"
)

// logEndLiteral is the exact 11-byte terminator payload of a LOG_END event.
var logEndLiteral = []byte("End of log\x00")

// decodeEvent reads one event frame's payload from s. It returns the
// decoded event (ok=true) or ok=false if the event ID was unrecognized or
// its payload didn't match what was expected (a LOG_END whose literal
// doesn't match) — both of which are desyncs, not corruption (spec.md §4.6,
// §7). When a LOG_END event is recognized, the stream's end is clamped to
// the current position via s.SetEnd.
func decodeEvent(s *bytestream.Stream) (LastEvent, bool) {
	id := s.ReadByte()
	switch id {
	case eventIDSyncBeep:
		t := s.ReadUnsignedVB()
		return LastEvent{Kind: EventSyncBeep, SyncBeep: EventSyncBeepData{Time: t}}, true

	case eventIDAutotuneCycleStart:
		phase := s.ReadByte()
		cycleAndRising := s.ReadByte()
		p := s.ReadByte()
		i := s.ReadByte()
		d := s.ReadByte()
		return LastEvent{
			Kind: EventAutotuneCycleStart,
			AutotuneStart: EventAutotuneCycleStartData{
				Phase:  phase,
				Cycle:  cycleAndRising & 0x7f,
				Rising: cycleAndRising&0x80 != 0,
				P:      p,
				I:      i,
				D:      d,
			},
		}, true

	case eventIDAutotuneCycleResult:
		overshot := s.ReadByte()
		p := s.ReadByte()
		i := s.ReadByte()
		d := s.ReadByte()
		return LastEvent{
			Kind: EventAutotuneCycleResult,
			AutotuneResult: EventAutotuneCycleResultData{
				Overshot: overshot,
				P:        p,
				I:        i,
				D:        d,
			},
		}, true

	case eventIDAutotuneTargets:
		currentAngle := s.ReadS16()
		targetAngle := int8(s.ReadByte())
		targetAngleAtPeak := int8(s.ReadByte())
		firstPeak := s.ReadS16()
		secondPeak := s.ReadS16()
		return LastEvent{
			Kind: EventAutotuneTargets,
			AutotuneTargets: EventAutotuneTargetsData{
				CurrentAngle:      float64(currentAngle) / 10,
				TargetAngle:       targetAngle,
				TargetAngleAtPeak: targetAngleAtPeak,
				FirstPeakAngle:    float64(firstPeak) / 10,
				SecondPeakAngle:   float64(secondPeak) / 10,
			},
		}, true

	case eventIDLogEnd:
		lit := s.ReadString(len(logEndLiteral))
		if !bytes.Equal(lit, logEndLiteral) {
			return LastEvent{}, false
		}
		s.SetEnd(s.Pos())
		return LastEvent{Kind: EventLogEnd}, true

	default:
		return LastEvent{}, false
	}
}

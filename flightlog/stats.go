/*
NAME
  stats.go

DESCRIPTION
  stats.go implements the StatsCollector: per-field min/max tracking,
  per-frame-type counts and byte totals, and a throughput meter built on the
  same bitrate.Calculator the teacher uses for encoder bitrate reporting.

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

import "github.com/ausocean/utils/bitrate"

// FieldRange tracks the observed bounds of a single field across the parse.
type FieldRange struct {
	Min, Max int32
	Seen     bool // false until the first observation lazily initializes Min/Max.
}

// observe widens the range to include v, initializing it on first use.
func (r *FieldRange) observe(v int32) {
	if !r.Seen {
		r.Min, r.Max = v, v
		r.Seen = true
		return
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

// FrameTypeStats accumulates per-frame-type counters.
type FrameTypeStats struct {
	Bytes        int64
	SizeCount    [256]int64 // histogram of frame sizes in bytes, indexed [0,255].
	ValidCount   int64
	CorruptCount int64

	// DesyncCount counts completion-routine rejections for this frame type
	// (e.g. an unrecognized event, or a G-frame reported when GPS home isn't
	// valid). Explicitly zero-initialized here rather than left to spring
	// into existence on first write (spec.md §9, first Open Question).
	DesyncCount int64
}

// Stats accumulates decode statistics across a parse.
type Stats struct {
	TotalBytes                    int64
	TotalCorruptFrames            int64
	IntentionallyAbsentIterations int64

	Fields    map[string]*FieldRange
	FrameType map[FrameType]*FrameTypeStats

	throughput bitrate.Calculator
}

// newStats returns a zero-initialized Stats with every known frame type's
// counters present (and DesyncCount at zero) from construction.
func newStats() *Stats {
	s := &Stats{
		Fields:    make(map[string]*FieldRange),
		FrameType: make(map[FrameType]*FrameTypeStats),
	}
	for _, t := range []FrameType{FrameIntra, FrameInter, FrameGPS, FrameHome, FrameEvent} {
		s.FrameType[t] = &FrameTypeStats{}
	}
	return s
}

// reset clears all counters (used by ResetStats) without touching schema.
func (s *Stats) reset() {
	s.TotalBytes = 0
	s.TotalCorruptFrames = 0
	s.IntentionallyAbsentIterations = 0
	s.Fields = make(map[string]*FieldRange)
	for t := range s.FrameType {
		s.FrameType[t] = &FrameTypeStats{}
	}
	s.throughput = bitrate.Calculator{}
}

// field returns (creating if necessary) the FieldRange for name.
func (s *Stats) field(name string) *FieldRange {
	r, ok := s.Fields[name]
	if !ok {
		r = &FieldRange{}
		s.Fields[name] = r
	}
	return r
}

// recordFrame updates byte totals, the size histogram and the throughput
// meter for a completed frame of the given type and size.
func (s *Stats) recordFrame(t FrameType, size int) {
	s.TotalBytes += int64(size)
	fs := s.FrameType[t]
	fs.Bytes += int64(size)
	if size >= 0 && size < len(fs.SizeCount) {
		fs.SizeCount[size]++
	}
	s.throughput.Report(size)
}

// Throughput returns the decoder's current estimate of stream bytes per
// second, as tracked by the underlying bitrate.Calculator.
func (s *Stats) Throughput() int {
	return s.throughput.Bitrate()
}

// observeFields widens every named field's range from a decoded frame's
// values, using def to map field index to name.
func (s *Stats) observeFields(def *FrameDef, values []int32) {
	for i, v := range values {
		if i >= len(def.Names) {
			break
		}
		s.field(def.Names[i]).observe(v)
	}
}

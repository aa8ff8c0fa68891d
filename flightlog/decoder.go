/*
NAME
  decoder.go

DESCRIPTION
  decoder.go is the package's public entry point: Decoder ties the
  HeaderParser, FrameDecoder, PredictorEngine, ValidityGate, Resynchronizer
  and StatsCollector together into ParseHeader/ParseLogData.

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
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/blackbox/bytestream"
)

var errParseBeforeHeader = errors.New("ParseLogData called before a successful ParseHeader")

// discardLogger is the zero-configuration default: every call is a no-op.
// Constructing a Decoder without WithLogger uses this rather than leave log
// nil, so dispatcher.go and header.go never need a nil check.
type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{})      {}
func (discardLogger) Info(string, ...interface{})       {}
func (discardLogger) Warning(string, ...interface{})    {}
func (discardLogger) Error(string, ...interface{})      {}
func (discardLogger) Fatal(string, ...interface{})      {}
func (discardLogger) SetLevel(int8)                     {}
func (discardLogger) Log(int8, string, ...interface{})  {}

// Decoder holds the schema and running state for decoding one flight log:
// the parsed header (sysConfig, frameDefs), the rotating history buffers,
// the last accepted main-frame/validity state, the last event, and
// accumulated stats.
type Decoder struct {
	log logging.Logger
	raw bool

	sysConfig SystemConfig
	frameDefs map[FrameType]*FrameDef

	history *HistoryRing
	home    *HomeHistory

	lastMainIteration int64
	lastMainTime      int64
	haveLastMain      bool
	mainStreamIsValid bool
	lastSkipped       int64

	gpsHomeValid bool

	lastEvent LastEvent
	lastFrame Frame // copy of the frame most recently completed, passed to the FrameSink.
	stats     *Stats

	onFrame func(valid bool, f Frame, le LastEvent, typeTag FrameType, byteOffset, byteLength int)

	headerDone bool

	// Dispatcher state (dispatcher.go): the frame started at frameStart is
	// decoded eagerly but not validated/committed until the following
	// iteration discovers its true size.
	framePending   bool
	pendingType    FrameType
	frameStart     int
	prematureEof   bool
	pendingGPS     []int32
	pendingEvent   LastEvent
	pendingEventOK bool
	fatalErr       error
}

// NewDecoder returns a Decoder ready to parse a header via ParseHeader.
func NewDecoder(opts ...Option) (*Decoder, error) {
	d := &Decoder{
		log:               discardLogger{},
		sysConfig:         defaultSystemConfig(),
		frameDefs:         make(map[FrameType]*FrameDef),
		lastMainIteration: -1,
		lastMainTime:      -1,
		stats:             newStats(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ParseHeader consumes the "H <key>:<value>" header section from s and
// builds the frame schema. It must be called exactly once, before the first
// call to ParseLogData. Returns a header-fatal error (spec.md §7) if the
// resulting schema can't support decoding.
func (d *Decoder) ParseHeader(s *bytestream.Stream) error {
	if err := d.parseHeaderSection(s); err != nil {
		d.log.Error("header parse failed", "error", err)
		return err
	}
	d.history = newHistoryRing(d.frameDefs[FrameIntra].FieldCount())
	if home, ok := d.frameDefs[FrameHome]; ok {
		d.home = newHomeHistory(home.FieldCount())
	}
	d.headerDone = true
	d.log.Debug("header parsed", "mainFields", d.frameDefs[FrameIntra].FieldCount())
	return nil
}

// ParseLogData decodes frames from s from its current position to its end,
// invoking the registered FrameSink for each. It returns an error only for a
// schema-fatal condition (spec.md §7); mid-stream corruption and semantic
// rejection are handled by the Resynchronizer/ValidityGate and reported via
// the FrameSink rather than surfaced here.
func (d *Decoder) ParseLogData(s *bytestream.Stream) (bool, error) {
	if !d.headerDone {
		return false, errParseBeforeHeader
	}
	d.dispatch(s)
	if d.fatalErr != nil {
		return false, d.fatalErr
	}
	return true, nil
}

// ResetStats clears all accumulated StatsCollector counters without
// disturbing the parsed schema or decode position.
func (d *Decoder) ResetStats() {
	d.stats.reset()
}

// ResetState rewinds all running decode state (history, validity, last
// event) to its post-header values, without forgetting the schema. This
// lets a caller re-parse the same log data from the top and get an
// identical result, which is how golden-log regression tests validate
// determinism (spec.md §9's audit read).
func (d *Decoder) ResetState() {
	d.history = newHistoryRing(d.frameDefs[FrameIntra].FieldCount())
	if home, ok := d.frameDefs[FrameHome]; ok {
		d.home = newHomeHistory(home.FieldCount())
	}
	d.lastMainIteration = -1
	d.lastMainTime = -1
	d.haveLastMain = false
	d.mainStreamIsValid = false
	d.lastSkipped = 0
	d.gpsHomeValid = false
	d.lastEvent = LastEvent{}
	d.framePending = false
	d.prematureEof = false
	d.pendingGPS = nil
	d.pendingEvent = LastEvent{}
	d.pendingEventOK = false
	d.fatalErr = nil
}

// Stats returns the decoder's accumulated StatsCollector state.
func (d *Decoder) Stats() *Stats { return d.stats }

// SystemConfig returns the header-derived configuration snapshot.
func (d *Decoder) SystemConfig() SystemConfig { return d.sysConfig }

// FrameDef returns the field schema registered for tag, and whether one was
// declared by the header at all (G and H frames are optional).
func (d *Decoder) FrameDef(tag FrameType) (FrameDef, bool) {
	fd, ok := d.frameDefs[tag]
	if !ok {
		return FrameDef{}, false
	}
	return *fd, true
}

// MainFieldNames returns the shared I/P field name vector.
func (d *Decoder) MainFieldNames() []string {
	return d.frameDefs[FrameIntra].Names
}

// GPSFieldNames returns the G field name vector, or nil if none was declared.
func (d *Decoder) GPSFieldNames() []string {
	if fd, ok := d.frameDefs[FrameGPS]; ok {
		return fd.Names
	}
	return nil
}

// GPSHomeFieldNames returns the H field name vector, or nil if none was
// declared.
func (d *Decoder) GPSHomeFieldNames() []string {
	if fd, ok := d.frameDefs[FrameHome]; ok {
		return fd.Names
	}
	return nil
}

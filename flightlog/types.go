/*
NAME
  types.go

DESCRIPTION
  types.go defines the data model for the Blackbox CORE decoder: frame-type
  tags, the predictor and encoding enumerations, SystemConfig, FrameDef and
  the Stats types. See Readme.md (spec.md §3) for the full description.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package flightlog decodes the compact binary telemetry log ("Blackbox")
// emitted by flight controller firmware into a sequence of fully decoded
// frames, validity flags and statistics.
package flightlog

// FrameType is one of the five wire frame-type tags.
type FrameType byte

// The closed set of frame-type tags.
const (
	FrameIntra FrameType = 'I' // Self-contained main frame, resets history.
	FrameInter FrameType = 'P' // Delta main frame, predicted from history.
	FrameGPS   FrameType = 'G' // GPS reading.
	FrameHome  FrameType = 'H' // GPS home reference, used as a predictor base.
	FrameEvent FrameType = 'E' // Event record.
)

// knownFrameType reports whether b is one of the recognized frame-type tags.
func knownFrameType(b byte) bool {
	switch FrameType(b) {
	case FrameIntra, FrameInter, FrameGPS, FrameHome, FrameEvent:
		return true
	}
	return false
}

// MaxFrameLength (FLIGHT_LOG_MAX_FRAME_LENGTH) is the largest a single frame (tag byte
// through the last payload byte) may be before it's considered corrupt.
const MaxFrameLength = 256

// Resynchronization and validity-gate tuning constants (spec.md §4.4).
const (
	MaxIterationJump = 5000    // iterations
	MaxTimeJump      = 10_000_000 // microseconds
)

// Predictor is the wire-stable ID of a per-field prediction rule.
type Predictor int

const (
	PredictorNone         Predictor = 0
	PredictorPrevious     Predictor = 1
	PredictorStraightLine Predictor = 2
	PredictorAverage2     Predictor = 3
	PredictorMinthrottle  Predictor = 4
	PredictorMotor0       Predictor = 5
	PredictorInc          Predictor = 6
	PredictorHomeCoord    Predictor = 7
	PredictorConst1500    Predictor = 8
	PredictorVBatRef      Predictor = 9
	PredictorLastMainTime Predictor = 10

	// PredictorHomeCoord1 is a synthetic predictor produced by header
	// post-processing (spec.md §4.1): the second of an adjacent HOME_COORD
	// pair is rewritten to this ID to disambiguate latitude from longitude.
	PredictorHomeCoord1 Predictor = 256
)

// Encoding is the wire-stable ID of a per-field (or per-field-group) byte
// layout.
type Encoding int

const (
	EncodingSignedVB   Encoding = 0
	EncodingUnsignedVB Encoding = 1
	EncodingNeg14Bit   Encoding = 3
	EncodingTag8_8SVB  Encoding = 6
	EncodingTag2_3S32  Encoding = 7
	EncodingTag8_4S16  Encoding = 8
	EncodingNull       Encoding = 9
)

// FirmwareType distinguishes header dialects that affect a handful of
// normalization rules (gyroScale in particular).
type FirmwareType int

const (
	FirmwareUnknown FirmwareType = iota
	FirmwareBaseflight
	FirmwareCleanflight
)

// SystemConfig is the key/value snapshot derived from the header (spec.md
// §3). All fields default to their zero value until the header sets them,
// except FrameIntervalI, FrameIntervalPNum and FrameIntervalPDenom, which
// default to 1 so that the sampling-rate arithmetic in validity.go never
// divides by zero.
type SystemConfig struct {
	FrameIntervalI      int
	FrameIntervalPNum   int
	FrameIntervalPDenom int

	FirmwareType FirmwareType
	DataVersion  int

	Minthrottle int
	Maxthrottle int

	Vbatref                int
	Vbatscale              int
	VbatMinCellVoltage     int
	VbatWarningCellVoltage int
	VbatMaxCellVoltage     int

	CurrentMeterOffset int
	CurrentMeterScale  int

	RcRate int
	Acc1G  int

	// GyroScale is normalized to the baseflight convention at ingest: if
	// FirmwareType is cleanflight, the raw header value is multiplied by
	// pi/180 * 1e-6 (spec.md §3).
	GyroScale float64
}

// defaultSystemConfig returns a SystemConfig with the clamped defaults that
// must hold even if the header never mentions I interval / P interval.
func defaultSystemConfig() SystemConfig {
	return SystemConfig{
		FrameIntervalI:      1,
		FrameIntervalPNum:   1,
		FrameIntervalPDenom: 1,
	}
}

// FrameDef holds, for one frame-type tag, the field schema: names, and the
// parallel predictor/encoding/signedness vectors. For I and P frames all
// three vectors (names, predictors, encodings) must be populated and of
// equal length before decoding begins; G and H are optional.
type FrameDef struct {
	Names      []string
	Predictors []Predictor
	Encodings  []Encoding
	Signed     []bool // optional; nil means "not specified"

	// NameToIndex is derived once names is finalized.
	NameToIndex map[string]int
}

// FieldCount returns the number of fields defined.
func (f *FrameDef) FieldCount() int {
	if f == nil {
		return 0
	}
	return len(f.Names)
}

// buildIndex (re)computes NameToIndex from Names.
func (f *FrameDef) buildIndex() {
	f.NameToIndex = make(map[string]int, len(f.Names))
	for i, n := range f.Names {
		f.NameToIndex[n] = i
	}
}

// IndexOf returns the field index for name, or -1 if absent.
func (f *FrameDef) IndexOf(name string) int {
	if f == nil || f.NameToIndex == nil {
		return -1
	}
	if i, ok := f.NameToIndex[name]; ok {
		return i
	}
	return -1
}

// ready reports whether f has matching, non-empty predictor/encoding vectors,
// as required of the I and P FrameDefs before decoding begins.
func (f *FrameDef) ready() bool {
	if f == nil {
		return false
	}
	n := len(f.Names)
	return n > 0 && len(f.Predictors) == n && len(f.Encodings) == n
}

// EventKind identifies the kind of payload carried by an event frame.
type EventKind int

const (
	EventNone EventKind = iota
	EventSyncBeep
	EventAutotuneCycleStart
	EventAutotuneCycleResult
	EventAutotuneTargets
	EventLogEnd
)

// Wire event-type IDs (spec.md §4.6).
const (
	eventIDSyncBeep             = 0x00
	eventIDAutotuneCycleStart   = 0x0A
	eventIDAutotuneCycleResult  = 0x0B
	eventIDAutotuneTargets      = 0x0C
	eventIDLogEnd               = 0xFF
)

// EventSyncBeepData is the payload of a SYNC_BEEP event.
type EventSyncBeepData struct {
	Time uint32
}

// EventAutotuneCycleStartData is the payload of an AUTOTUNE_CYCLE_START event.
type EventAutotuneCycleStartData struct {
	Phase  byte
	Cycle  byte
	Rising bool
	P, I, D byte
}

// EventAutotuneCycleResultData is the payload of an AUTOTUNE_CYCLE_RESULT event.
type EventAutotuneCycleResultData struct {
	Overshot byte
	P, I, D  byte
}

// EventAutotuneTargetsData is the payload of an AUTOTUNE_TARGETS event.
type EventAutotuneTargetsData struct {
	CurrentAngle      float64 // degrees
	TargetAngle       int8
	TargetAngleAtPeak int8
	FirstPeakAngle    float64 // degrees
	SecondPeakAngle   float64 // degrees
}

// LastEvent is the tagged union over the most recently decoded event frame's
// payload (spec.md §3's "last-event record").
type LastEvent struct {
	Kind              EventKind
	SyncBeep          EventSyncBeepData
	AutotuneStart     EventAutotuneCycleStartData
	AutotuneResult    EventAutotuneCycleResultData
	AutotuneTargets   EventAutotuneTargetsData
}

// Frame is a single fully-decoded main (I/P), GPS, or home frame: an integer
// value per field, keyed positionally by the owning FrameDef's Names/
// NameToIndex. Event frames are reported via LastEvent instead, since their
// payload isn't a flat field vector.
type Frame struct {
	Type   FrameType
	Values []int32
}

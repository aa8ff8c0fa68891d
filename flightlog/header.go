/*
NAME
  header.go

DESCRIPTION
  header.go implements the HeaderParser: it consumes "H <key>:<value>" lines
  from the current stream position, populating SystemConfig and the
  per-frame-type FrameDefs, until a byte that isn't the start of a header
  line is encountered.

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
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/blackbox/bytestream"
)

// Header-fatal errors (spec.md §4.1, §7).
var (
	ErrNoMainFields       = errors.New("header did not declare any main frame fields")
	ErrIncompleteFrameDef = errors.New("frame type declares field names but is missing its predictor or encoding vector")
)

const maxHeaderLineLen = 1024

// headerLineSpace is the byte that must follow the 'H' tag for
// parseHeaderSection to treat a line as header continuation rather than a
// GPS-home frame (spec.md §4.1).
const headerLineSpace = ' '

// parseHeaderSection consumes "H " lines from s until a byte is seen that
// either isn't 'H', or is 'H' but not followed by a space — at which point
// the 'H' (if any) is pushed back so the dispatcher can process it as an
// ordinary frame-type tag. Returns a header-fatal error if the resulting
// schema is incomplete.
func (d *Decoder) parseHeaderSection(s *bytestream.Stream) error {
	for {
		if s.PeekChar() != int('H') {
			break
		}
		s.ReadByte() // consume the tentative 'H'.
		if s.PeekChar() != headerLineSpace {
			s.UnreadChar()
			break
		}
		s.ReadByte() // consume the space.
		d.parseHeaderLine(s)
	}
	return d.validateSchema()
}

// parseHeaderLine reads a single header line (bounded by newline, NUL, or
// the 1024-byte cap) and applies it.
func (d *Decoder) parseHeaderLine(s *bytestream.Stream) {
	buf := make([]byte, 0, 64)
	for len(buf) < maxHeaderLineLen {
		c := s.ReadChar()
		if c == bytestream.EOF || c == 0x0A || c == 0x00 {
			break
		}
		buf = append(buf, byte(c))
	}

	colon := bytes.IndexByte(buf, ':')
	if colon < 0 {
		return // malformed line; unknown keys (and unparsable ones) are ignored.
	}
	key := string(buf[:colon])
	val := string(buf[colon+1:])
	d.applyHeaderKV(key, val)
}

// frameDef returns (allocating if necessary) the FrameDef for t.
func (d *Decoder) frameDef(t FrameType) *FrameDef {
	fd, ok := d.frameDefs[t]
	if !ok {
		fd = &FrameDef{}
		d.frameDefs[t] = fd
	}
	return fd
}

func splitCSVInts(s string) []int {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func splitCSVNames(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func intsToPredictors(in []int) []Predictor {
	out := make([]Predictor, len(in))
	for i, v := range in {
		out[i] = Predictor(v)
	}
	return out
}

func intsToEncodings(in []int) []Encoding {
	out := make([]Encoding, len(in))
	for i, v := range in {
		out[i] = Encoding(v)
	}
	return out
}

func intsToBools(in []int) []bool {
	out := make([]bool, len(in))
	for i, v := range in {
		out[i] = v != 0
	}
	return out
}

// applyHeaderKV applies one header key/value pair to the decoder's schema
// and config. Unknown keys are silently ignored, per spec.md §4.1.
func (d *Decoder) applyHeaderKV(key, val string) {
	switch key {
	case "Field I name":
		names := splitCSVNames(val)
		d.frameDef(FrameIntra).Names = names
		// P frames share the main field-name vector with I; only their
		// predictor/encoding vectors are declared separately.
		d.frameDef(FrameInter).Names = names

	case "Field G name":
		d.frameDef(FrameGPS).Names = splitCSVNames(val)

	case "Field H name":
		d.frameDef(FrameHome).Names = splitCSVNames(val)

	case "Field I signed":
		d.frameDef(FrameIntra).Signed = intsToBools(splitCSVInts(val))

	case "Field I predictor":
		d.frameDef(FrameIntra).Predictors = intsToPredictors(splitCSVInts(val))
	case "Field P predictor":
		d.frameDef(FrameInter).Predictors = intsToPredictors(splitCSVInts(val))
	case "Field G predictor":
		d.frameDef(FrameGPS).Predictors = intsToPredictors(splitCSVInts(val))
	case "Field H predictor":
		d.frameDef(FrameHome).Predictors = intsToPredictors(splitCSVInts(val))

	case "Field I encoding":
		d.frameDef(FrameIntra).Encodings = intsToEncodings(splitCSVInts(val))
	case "Field P encoding":
		d.frameDef(FrameInter).Encodings = intsToEncodings(splitCSVInts(val))
	case "Field G encoding":
		d.frameDef(FrameGPS).Encodings = intsToEncodings(splitCSVInts(val))
	case "Field H encoding":
		d.frameDef(FrameHome).Encodings = intsToEncodings(splitCSVInts(val))

	case "I interval":
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			if n < 1 {
				n = 1
			}
			d.sysConfig.FrameIntervalI = n
		}

	case "P interval":
		num, denom, ok := parsePInterval(val)
		if ok {
			d.sysConfig.FrameIntervalPNum = num
			d.sysConfig.FrameIntervalPDenom = denom
		}

	case "Data version":
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			d.sysConfig.DataVersion = n
		}

	case "Firmware type":
		if strings.TrimSpace(val) == "Cleanflight" {
			d.sysConfig.FirmwareType = FirmwareCleanflight
		} else {
			d.sysConfig.FirmwareType = FirmwareBaseflight
		}

	case "minthrottle":
		d.sysConfig.Minthrottle = atoiOr(val, d.sysConfig.Minthrottle)
	case "maxthrottle":
		d.sysConfig.Maxthrottle = atoiOr(val, d.sysConfig.Maxthrottle)
	case "rcRate":
		d.sysConfig.RcRate = atoiOr(val, d.sysConfig.RcRate)
	case "vbatscale":
		d.sysConfig.Vbatscale = atoiOr(val, d.sysConfig.Vbatscale)
	case "vbatref":
		d.sysConfig.Vbatref = atoiOr(val, d.sysConfig.Vbatref)
	case "acc_1G":
		d.sysConfig.Acc1G = atoiOr(val, d.sysConfig.Acc1G)

	case "vbatcellvoltage":
		vs := splitCSVInts(val)
		if len(vs) == 3 {
			d.sysConfig.VbatMinCellVoltage = vs[0]
			d.sysConfig.VbatWarningCellVoltage = vs[1]
			d.sysConfig.VbatMaxCellVoltage = vs[2]
		}

	case "currentMeter":
		vs := splitCSVInts(val)
		if len(vs) == 2 {
			d.sysConfig.CurrentMeterOffset = vs[0]
			d.sysConfig.CurrentMeterScale = vs[1]
		}

	case "gyro.scale":
		if f, ok := parseHexFloat32(val); ok {
			scale := float64(f)
			if d.sysConfig.FirmwareType == FirmwareCleanflight {
				scale *= math.Pi / 180 * 1e-6
			}
			d.sysConfig.GyroScale = scale
		}

	default:
		// Unknown keys are silently ignored.
	}
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// parsePInterval matches an "N/D" literal; ok is false (and numerator/
// denominator are left unset) if val doesn't match.
func parsePInterval(val string) (num, denom int, ok bool) {
	val = strings.TrimSpace(val)
	i := strings.IndexByte(val, '/')
	if i < 0 {
		return 0, 0, false
	}
	n, err1 := strconv.Atoi(val[:i])
	d, err2 := strconv.Atoi(val[i+1:])
	if err1 != nil || err2 != nil || d <= 0 {
		return 0, 0, false
	}
	return n, d, true
}

// parseHexFloat32 decodes a hex-encoded IEEE-754 float, e.g. "3a83126f".
func parseHexFloat32(val string) (float32, bool) {
	val = strings.TrimSpace(val)
	val = strings.TrimPrefix(val, "0x")
	bits, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return math.Float32frombits(uint32(bits)), true
}

// postProcessHomeCoordPairs rewrites the second of any adjacent pair of
// HOME_COORD predictors in the G FrameDef to the synthetic HOME_COORD_1, to
// disambiguate GPS latitude from longitude (spec.md §4.1).
func (d *Decoder) postProcessHomeCoordPairs() {
	g, ok := d.frameDefs[FrameGPS]
	if !ok {
		return
	}
	for i := 1; i < len(g.Predictors); i++ {
		if g.Predictors[i-1] == PredictorHomeCoord && g.Predictors[i] == PredictorHomeCoord {
			g.Predictors[i] = PredictorHomeCoord1
		}
	}
}

// validateSchema builds name indexes and checks the header-fatal
// conditions of spec.md §4.1: mainFieldCount must be nonzero, and every
// declared FrameDef (I and P always, G and H only if the header declared
// field names for them) must have complete, matching predictor/encoding
// vectors.
// G/H are optional per spec.md §3, but a partially declared one (e.g. a
// "Field G name" line truncated before its matching "Field G predictor"/
// "Field G encoding" lines arrive) is schema-fatal rather than left to
// decodeFrame to index out of range against a nil/short vector.
func (d *Decoder) validateSchema() error {
	for _, fd := range d.frameDefs {
		fd.buildIndex()
	}
	d.postProcessHomeCoordPairs()

	i := d.frameDefs[FrameIntra]
	p := d.frameDefs[FrameInter]
	if i.FieldCount() == 0 {
		return ErrNoMainFields
	}
	if !i.ready() || !p.ready() {
		return ErrIncompleteFrameDef
	}

	for _, ft := range []FrameType{FrameGPS, FrameHome} {
		fd, ok := d.frameDefs[ft]
		if !ok || fd.FieldCount() == 0 {
			continue
		}
		if !fd.ready() {
			return ErrIncompleteFrameDef
		}
	}
	return nil
}

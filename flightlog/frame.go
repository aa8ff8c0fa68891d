/*
NAME
  frame.go

DESCRIPTION
  frame.go implements the FrameDecoder: the shared per-field walk that reads
  an encoded payload, dispatches to the PredictorEngine, and writes a full
  frame into a history slot.

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

	"github.com/ausocean/blackbox/bytestream"
)

// ErrUnknownEncoding is returned when a field's encoding ID isn't one of the
// closed set recognized by decodeFrame; this is schema-fatal (spec.md §7).
var ErrUnknownEncoding = errors.New("unknown encoding ID")

// decodeFrame walks fields 0..fieldCount-1 of def, reading raw deltas from s
// and writing corrected values into current. prev/prev2 are the main-frame
// history (nil if absent); gpsHome/homeDef provide the GPS_home[0]/[1]
// predictor bases (nil if unavailable). skipped is the count of
// intentionally-skipped iterations to feed the INC predictor. If raw is
// true, every predictor's correction is suppressed (NONE) except the INC
// structural shortcut, which always applies regardless of raw (it governs
// whether a field consumes wire bytes at all, not how its value is
// corrected).
func decodeFrame(
	s *bytestream.Stream,
	def *FrameDef,
	current, prev, prev2 []int32,
	sysConfig *SystemConfig,
	gpsHome []int32,
	homeDef *FrameDef,
	skipped int,
	lastMainTime int64,
	haveLastMain bool,
	raw bool,
) error {
	fieldCount := def.FieldCount()
	ctx := &predictorContext{
		current:      current,
		prev:         prev,
		prev2:        prev2,
		mainDef:      def,
		gpsHome:      gpsHome,
		homeDef:      homeDef,
		sysConfig:    sysConfig,
		lastMainTime: lastMainTime,
		haveLastMain: haveLastMain,
	}

	for i := 0; i < fieldCount; {
		pred := def.Predictors[i]

		if pred == PredictorInc {
			var base int32
			if prev != nil {
				base = prev[i]
			}
			current[i] = base + int32(skipped) + 1
			i++
			continue
		}

		effectivePred := pred
		if raw {
			effectivePred = PredictorNone
		}

		enc := def.Encodings[i]
		switch enc {
		case EncodingSignedVB:
			rawVal := s.ReadSignedVB()
			if err := decodeOne(ctx, i, effectivePred, rawVal, current); err != nil {
				return err
			}
			i++

		case EncodingUnsignedVB:
			rawVal := int32(s.ReadUnsignedVB())
			if err := decodeOne(ctx, i, effectivePred, rawVal, current); err != nil {
				return err
			}
			i++

		case EncodingNull:
			if err := decodeOne(ctx, i, effectivePred, 0, current); err != nil {
				return err
			}
			i++

		case EncodingNeg14Bit:
			u := s.ReadUnsignedVB()
			v := signExtend14(u)
			v = -v
			if err := decodeOne(ctx, i, effectivePred, v, current); err != nil {
				return err
			}
			i++

		case EncodingTag8_4S16:
			var vals [4]int32
			if sysConfig.DataVersion < 2 {
				s.ReadTag8_4S16V1(&vals)
			} else {
				s.ReadTag8_4S16V2(&vals)
			}
			n := 4
			if i+n > fieldCount {
				n = fieldCount - i
			}
			for k := 0; k < n; k++ {
				pk := def.Predictors[i+k]
				epk := pk
				if raw {
					epk = PredictorNone
				}
				if err := decodeOne(ctx, i+k, epk, vals[k], current); err != nil {
					return err
				}
			}
			i += n

		case EncodingTag2_3S32:
			var vals [3]int32
			s.ReadTag2_3S32(&vals)
			n := 3
			if i+n > fieldCount {
				n = fieldCount - i
			}
			for k := 0; k < n; k++ {
				pk := def.Predictors[i+k]
				epk := pk
				if raw {
					epk = PredictorNone
				}
				if err := decodeOne(ctx, i+k, epk, vals[k], current); err != nil {
					return err
				}
			}
			i += n

		case EncodingTag8_8SVB:
			groupCount := tag8_8svbRunLength(def.Encodings, i, fieldCount)
			vals := make([]int32, groupCount)
			s.ReadTag8_8SVB(vals, groupCount)
			for k := 0; k < groupCount; k++ {
				pk := def.Predictors[i+k]
				epk := pk
				if raw {
					epk = PredictorNone
				}
				if err := decodeOne(ctx, i+k, epk, vals[k], current); err != nil {
					return err
				}
			}
			i += groupCount

		default:
			return errors.Wrapf(ErrUnknownEncoding, "field %q encoding %d", def.Names[i], enc)
		}
	}
	return nil
}

// decodeOne applies a single field's predictor correction and writes the
// result into current[idx].
func decodeOne(ctx *predictorContext, idx int, pred Predictor, raw int32, current []int32) error {
	ctx.fieldIndex = idx
	v, err := applyPredictor(pred, raw, ctx)
	if err != nil {
		return err
	}
	current[idx] = v
	return nil
}

// tag8_8svbRunLength returns the length of the maximal run of consecutive
// TAG8_8SVB-encoded fields starting at i, capped at 8 and at fieldCount.
func tag8_8svbRunLength(encodings []Encoding, i, fieldCount int) int {
	n := 0
	for i+n < fieldCount && n < 8 && encodings[i+n] == EncodingTag8_8SVB {
		n++
	}
	return n
}

// signExtend14 sign-extends the low 14 bits of u.
func signExtend14(u uint32) int32 {
	const bits = 14
	shift := 32 - bits
	return int32(u<<shift) >> shift
}

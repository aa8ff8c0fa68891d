/*
NAME
  predictor.go

DESCRIPTION
  predictor.go implements the PredictorEngine: a stateless function from
  (predictor kind, raw value, history, sys config) to a decoded value.

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

import "github.com/pkg/errors"

// Errors returned by applyPredictor when a predictor references a field
// that was never declared; these are schema-fatal per spec.md §7.
var (
	ErrMotor0Undefined    = errors.New("predictor MOTOR_0: field \"motor[0]\" not declared")
	ErrHomeCoordUndefined = errors.New("predictor HOME_COORD: field \"GPS_home[0]\" not declared")
	ErrHomeCoord1Undefined = errors.New("predictor HOME_COORD_1: field \"GPS_home[1]\" not declared")
	ErrUnknownPredictor   = errors.New("unknown predictor ID")
)

// predictorContext carries everything applyPredictor needs beyond the raw
// value and predictor kind: the field currently being decoded, the frame's
// own in-progress values (for MOTOR_0), main-frame history, GPS home, system
// config and the last accepted main frame's time (for LAST_MAIN_TIME).
type predictorContext struct {
	fieldIndex int
	current    []int32 // the frame being decoded, partially filled so far.
	prev       []int32 // h1, nil if absent.
	prev2      []int32 // h2, nil if absent.
	mainDef    *FrameDef
	gpsHome    []int32 // nil if GPS home isn't available.
	homeDef    *FrameDef
	sysConfig  *SystemConfig
	lastMainTime int64
	haveLastMain bool
}

// truncDiv2 divides (a+b) by 2, truncating toward zero rather than flooring,
// as required by the AVERAGE_2 predictor (spec.md §4.3, §9).
func truncDiv2(a, b int32) int32 {
	sum := int64(a) + int64(b)
	if sum < 0 {
		return int32(-((-sum) >> 1))
	}
	return int32(sum >> 1)
}

// applyPredictor adds a predictor's correction to value, returning the
// decoded field value. It returns an error only for schema-fatal conditions
// (spec.md §4.3, §7); all other predictors degenerate gracefully to no-ops
// when their required history is absent.
func applyPredictor(p Predictor, value int32, ctx *predictorContext) (int32, error) {
	switch p {
	case PredictorNone:
		return value, nil

	case PredictorPrevious:
		if ctx.prev == nil {
			return value, nil
		}
		return value + ctx.prev[ctx.fieldIndex], nil

	case PredictorStraightLine:
		if ctx.prev == nil {
			return value, nil
		}
		return value + 2*ctx.prev[ctx.fieldIndex] - ctx.prev2[ctx.fieldIndex], nil

	case PredictorAverage2:
		if ctx.prev == nil {
			return value, nil
		}
		return value + truncDiv2(ctx.prev[ctx.fieldIndex], ctx.prev2[ctx.fieldIndex]), nil

	case PredictorMinthrottle:
		return value + int32(ctx.sysConfig.Minthrottle), nil

	case PredictorConst1500:
		return value + 1500, nil

	case PredictorVBatRef:
		return value + int32(ctx.sysConfig.Vbatref), nil

	case PredictorMotor0:
		idx := ctx.mainDef.IndexOf("motor[0]")
		if idx < 0 {
			return 0, ErrMotor0Undefined
		}
		return value + ctx.current[idx], nil

	case PredictorHomeCoord:
		if ctx.homeDef == nil {
			return 0, ErrHomeCoordUndefined
		}
		idx := ctx.homeDef.IndexOf("GPS_home[0]")
		if idx < 0 {
			return 0, ErrHomeCoordUndefined
		}
		if ctx.gpsHome == nil {
			// Schema declares GPS_home[0] but no H-frame has committed a value
			// yet; degrade to a no-op like any other predictor referencing
			// absent history (spec.md §3), rather than fail the whole parse.
			return value, nil
		}
		return value + ctx.gpsHome[idx], nil

	case PredictorHomeCoord1:
		if ctx.homeDef == nil {
			return 0, ErrHomeCoord1Undefined
		}
		idx := ctx.homeDef.IndexOf("GPS_home[1]")
		if idx < 0 {
			return 0, ErrHomeCoord1Undefined
		}
		if ctx.gpsHome == nil {
			return value, nil
		}
		return value + ctx.gpsHome[idx], nil

	case PredictorLastMainTime:
		if !ctx.haveLastMain {
			return value, nil
		}
		return value + int32(ctx.lastMainTime), nil

	default:
		return 0, errors.Wrapf(ErrUnknownPredictor, "id %d", int(p))
	}
}

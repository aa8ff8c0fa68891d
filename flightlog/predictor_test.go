/*
NAME
  predictor_test.go
*/

package flightlog

import "testing"

// S1 — AVERAGE_2 truncation: verifies truncate-toward-zero division, not
// floor division.
func TestAverage2TruncatesTowardZero(t *testing.T) {
	ctx := &predictorContext{
		current: []int32{0},
		prev:    []int32{-3},
		prev2:   []int32{-2},
	}
	got, err := applyPredictor(PredictorAverage2, 0, ctx)
	if err != nil {
		t.Fatalf("applyPredictor: %v", err)
	}
	if got != -2 {
		t.Fatalf("got %d, want -2 (trunc((-3+-2)/2))", got)
	}
}

func TestTruncDiv2(t *testing.T) {
	cases := []struct{ a, b, want int32 }{
		{-3, -2, -2},
		{3, 2, 2},
		{-5, 0, -2},
		{5, 0, 2},
		{0, 0, 0},
		{-1, 0, 0},
	}
	for _, c := range cases {
		if got := truncDiv2(c.a, c.b); got != c.want {
			t.Errorf("truncDiv2(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestPredictorNoneAndPrevious(t *testing.T) {
	ctx := &predictorContext{current: []int32{0}, prev: []int32{10}}
	if v, _ := applyPredictor(PredictorNone, 5, ctx); v != 5 {
		t.Errorf("NONE: got %d, want 5", v)
	}
	if v, _ := applyPredictor(PredictorPrevious, 5, ctx); v != 15 {
		t.Errorf("PREVIOUS: got %d, want 15", v)
	}
}

func TestPredictorPreviousWithoutHistoryIsNoop(t *testing.T) {
	ctx := &predictorContext{current: []int32{0}, prev: nil}
	v, err := applyPredictor(PredictorPrevious, 5, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Errorf("got %d, want 5 (degrade to raw value)", v)
	}
}

func TestPredictorStraightLine(t *testing.T) {
	ctx := &predictorContext{current: []int32{0}, prev: []int32{10}, prev2: []int32{6}}
	got, err := applyPredictor(PredictorStraightLine, 0, ctx)
	if err != nil {
		t.Fatalf("applyPredictor: %v", err)
	}
	if want := int32(2*10 - 6); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestPredictorMotor0Undeclared(t *testing.T) {
	ctx := &predictorContext{
		current: []int32{0},
		mainDef: &FrameDef{Names: []string{"time"}, NameToIndex: map[string]int{"time": 0}},
	}
	if _, err := applyPredictor(PredictorMotor0, 0, ctx); err != ErrMotor0Undefined {
		t.Errorf("got err %v, want ErrMotor0Undefined", err)
	}
}

// S3 (predictor half) — HOME_COORD reads from the committed home frame via
// homeDef/gpsHome.
func TestPredictorHomeCoordPair(t *testing.T) {
	homeDef := &FrameDef{Names: []string{"GPS_home[0]", "GPS_home[1]"}}
	homeDef.buildIndex()
	gpsHome := []int32{37_000_000, -122_000_000}

	ctx := &predictorContext{
		current: make([]int32, 2),
		homeDef: homeDef,
		gpsHome: gpsHome,
	}

	ctx.fieldIndex = 0
	lat, err := applyPredictor(PredictorHomeCoord, 5, ctx)
	if err != nil {
		t.Fatalf("HOME_COORD: %v", err)
	}
	ctx.fieldIndex = 1
	lon, err := applyPredictor(PredictorHomeCoord1, 7, ctx)
	if err != nil {
		t.Fatalf("HOME_COORD_1: %v", err)
	}
	if lat != 37_000_005 || lon != -121_999_993 {
		t.Errorf("got (%d,%d), want (37000005,-121999993)", lat, lon)
	}
}

func TestPredictorUnknownID(t *testing.T) {
	ctx := &predictorContext{current: []int32{0}}
	if _, err := applyPredictor(Predictor(999), 0, ctx); err == nil {
		t.Error("expected error for unknown predictor ID")
	}
}

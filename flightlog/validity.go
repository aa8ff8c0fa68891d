/*
NAME
  validity.go

DESCRIPTION
  validity.go implements the ValidityGate: monotonicity and bounded-jump
  acceptance checks for main frames, and the sampling-rate reconciliation
  that distinguishes intentionally-skipped iterations from corruption.

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

// shouldHaveFrame reports whether the logger's configured sampling rate
// means a P-frame was expected to be emitted at iteration idx (spec.md
// §4.4). frameIntervalPDenom is guaranteed >= 1 by defaultSystemConfig /
// header clamping, so this never divides by zero.
func shouldHaveFrame(idx, frameIntervalI, frameIntervalPNum, frameIntervalPDenom int) bool {
	return mod(mod(idx, frameIntervalI)+frameIntervalPNum-1, frameIntervalPDenom) < frameIntervalPNum
}

// mod is non-negative modulus (Go's % can return negative results for
// negative operands; iteration counters here are never negative in
// practice, but this keeps the arithmetic well-defined regardless).
func mod(a, b int) int {
	if b == 0 {
		return 0
	}
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// countIntentionallySkippedFramesTo counts iterations i in
// (lastMainFrameIteration, target) for which shouldHaveFrame(i) is false.
func countIntentionallySkippedFramesTo(lastMainFrameIteration, target int, cfg *SystemConfig) int64 {
	var n int64
	for i := lastMainFrameIteration + 1; i < target; i++ {
		if !shouldHaveFrame(i, cfg.FrameIntervalI, cfg.FrameIntervalPNum, cfg.FrameIntervalPDenom) {
			n++
		}
	}
	return n
}

// countIntentionallySkippedFrames counts forward from
// lastMainFrameIteration+1 the run of iterations for which shouldHaveFrame is
// false, stopping at the first iteration expected to have a frame. Used
// before decoding a P-frame to feed the INC predictor (spec.md §4.4).
func countIntentionallySkippedFrames(lastMainFrameIteration int, cfg *SystemConfig) int {
	n := 0
	for i := lastMainFrameIteration + 1; ; i++ {
		if shouldHaveFrame(i, cfg.FrameIntervalI, cfg.FrameIntervalPNum, cfg.FrameIntervalPDenom) {
			break
		}
		n++
	}
	return n
}

// validityResult reports the ValidityGate's decision and any stats updates
// the caller (dispatcher.go) should apply.
type validityResult struct {
	accept           bool
	skippedToAdd     int64 // added to IntentionallyAbsentIterations on accept.
	promotesValidity bool  // true for I-frames: acceptance sets mainStreamIsValid.
}

// checkIntra applies the ValidityGate to a freshly decoded I-frame. iteration
// and time are read from the frame's "iteration"/"time" fields by the
// caller; a field the schema does not declare is passed as 0 and checked
// like any other value, so only the first I-frame of a schema without an
// iteration field can pass the strict-advance check.
func checkIntra(iteration, time int64, haveLast bool, lastIteration, lastTime int64, cfg *SystemConfig, raw bool) validityResult {
	if raw || !haveLast {
		return validityResult{accept: true, promotesValidity: true}
	}
	if iteration > lastIteration &&
		iteration < lastIteration+MaxIterationJump &&
		time >= lastTime &&
		time < lastTime+MaxTimeJump {
		skipped := countIntentionallySkippedFramesTo(int(lastIteration), int(iteration), cfg)
		return validityResult{accept: true, skippedToAdd: skipped, promotesValidity: true}
	}
	return validityResult{accept: false}
}

// checkInter applies the ValidityGate to a freshly decoded P-frame. P-frames
// never promote an invalid stream to valid; they can only be rejected
// (invalidating the stream) or accepted (extending it).
func checkInter(iteration, time int64, mainStreamIsValid bool, lastIteration, lastTime int64, lastSkippedFrames int64, raw bool) validityResult {
	if raw {
		return validityResult{accept: true}
	}
	if !mainStreamIsValid {
		// A P-frame can never resynchronize an already-invalid stream; only
		// an I-frame can (spec.md §4.4).
		return validityResult{accept: false}
	}
	if iteration > lastIteration &&
		iteration <= lastIteration+MaxIterationJump &&
		time >= lastTime &&
		time <= lastTime+MaxTimeJump {
		return validityResult{accept: true, skippedToAdd: lastSkippedFrames}
	}
	return validityResult{accept: false}
}

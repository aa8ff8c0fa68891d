/*
NAME
  options.go

DESCRIPTION
  options.go provides option functions that can be passed to NewDecoder for
  decoder configuration.

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

import "github.com/ausocean/utils/logging"

// Option configures a Decoder at construction time.
type Option func(*Decoder) error

// WithLogger sets the logger a Decoder reports invalid/corrupt frames and
// schema decisions to. Without this option the Decoder uses discardLogger,
// which drops every message.
func WithLogger(l logging.Logger) Option {
	return func(d *Decoder) error {
		d.log = l
		return nil
	}
}

// WithRawMode constructs a Decoder that suppresses all predictor corrections
// and validity-gate rejections, surfacing every frame's raw on-the-wire
// deltas. Used by diagnostic tooling (spec.md §5).
func WithRawMode(raw bool) Option {
	return func(d *Decoder) error {
		d.raw = raw
		return nil
	}
}

// WithFrameSink registers a callback invoked with every frame the Dispatcher
// completes, exactly once per frame in file order, including corrupt frames
// (spec.md §5). valid reports whether the ValidityGate/completion routine
// accepted it; typeTag identifies the frame kind even when f/le are left
// zero (e.g. a corrupt frame carries no payload). byteOffset/byteLength give
// the frame's position in the underlying stream (spec.md §8, Testable
// Property 1). The frame values passed in are fresh copies of the decoder's
// history slots, so the sink may retain them past the call.
func WithFrameSink(sink func(valid bool, f Frame, le LastEvent, typeTag FrameType, byteOffset, byteLength int)) Option {
	return func(d *Decoder) error {
		d.onFrame = sink
		return nil
	}
}

/*
NAME
  dispatcher.go

DESCRIPTION
  dispatcher.go implements the Dispatcher & Resynchronizer (spec.md §4.5):
  the top-level frame-tag scanning loop. A frame is decoded eagerly as soon
  as its tag is seen, but only validated and committed once the following
  tag (or clean EOF) reveals its true byte length — this is what lets the
  dispatcher tell a too-long, corrupt frame from a well-formed one before
  running its completion routine.

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

import "github.com/ausocean/blackbox/bytestream"

// dispatch runs the scan-decode-complete loop until s is exhausted or a
// schema-fatal error is recorded in d.fatalErr.
func (d *Decoder) dispatch(s *bytestream.Stream) {
	for {
		tagPos := s.Pos()
		b := s.ReadByte()
		hitEOF := s.EOF()

		if d.framePending {
			lastSize := tagPos - d.frameStart
			terminated := (!hitEOF && knownFrameType(b)) || (!d.prematureEof && hitEOF)
			if terminated && lastSize <= MaxFrameLength {
				ok := d.completeFrame(d.pendingType, lastSize)
				d.recordCompletion(d.pendingType, lastSize, ok)
			} else {
				d.recordCorruption(d.pendingType, lastSize)
				s.Seek(d.frameStart + 1)
				d.framePending = false
				d.prematureEof = false
				continue
			}
			d.framePending = false
			if d.fatalErr != nil {
				return
			}
		}

		if hitEOF {
			return
		}

		if !knownFrameType(b) {
			d.mainStreamIsValid = false
			continue
		}

		ft := FrameType(b)
		d.frameStart = tagPos
		d.pendingType = ft
		d.framePending = true
		d.prematureEof = false
		d.parseFramePayload(s, ft)
		if d.fatalErr != nil {
			return
		}
	}
}

// parseFramePayload eagerly decodes the payload of the frame just tagged,
// recording prematureEof if the ByteStream ran out mid-read.
func (d *Decoder) parseFramePayload(s *bytestream.Stream, ft FrameType) {
	switch ft {
	case FrameIntra, FrameInter:
		d.decodeMain(s, ft)
	case FrameGPS:
		d.decodeGPS(s)
	case FrameHome:
		d.decodeHome(s)
	case FrameEvent:
		d.pendingEvent, d.pendingEventOK = decodeEvent(s)
	}
	if s.EOF() {
		d.prematureEof = true
	}
}

// decodeMain decodes an I or P frame's fields into the history ring's
// current slot.
func (d *Decoder) decodeMain(s *bytestream.Stream, ft FrameType) {
	def := d.frameDefs[ft]
	cur := d.history.Current()
	prev := d.history.Prev()
	prev2 := d.history.Prev2()

	skipped := 0
	if d.haveLastMain {
		skipped = countIntentionallySkippedFrames(int(d.lastMainIteration), &d.sysConfig)
	}
	d.lastSkipped = int64(skipped)

	homeDef, gpsHome := d.homeBase()

	err := decodeFrame(s, def, cur, prev, prev2, &d.sysConfig, gpsHome, homeDef, skipped, d.lastMainTime, d.haveLastMain, d.raw)
	if err != nil {
		d.log.Error("schema-fatal error decoding main frame", "error", err)
		d.fatalErr = err
	}
}

// decodeGPS decodes a G frame's fields into the pending GPS buffer.
func (d *Decoder) decodeGPS(s *bytestream.Stream) {
	def, ok := d.frameDefs[FrameGPS]
	if !ok {
		return
	}
	if len(d.pendingGPS) != def.FieldCount() {
		d.pendingGPS = make([]int32, def.FieldCount())
	}
	homeDef, gpsHome := d.homeBase()
	err := decodeFrame(s, def, d.pendingGPS, nil, nil, &d.sysConfig, gpsHome, homeDef, 0, d.lastMainTime, d.haveLastMain, d.raw)
	if err != nil {
		d.log.Error("schema-fatal error decoding GPS frame", "error", err)
		d.fatalErr = err
	}
}

// decodeHome decodes an H frame's fields into the home history's writable
// slot. Home frames aren't predicted against their own history or GPS home
// (they establish it), so no prev/prev2/gpsHome is supplied.
func (d *Decoder) decodeHome(s *bytestream.Stream) {
	def, ok := d.frameDefs[FrameHome]
	if !ok {
		return
	}
	cur := d.home.Current()
	err := decodeFrame(s, def, cur, nil, nil, &d.sysConfig, nil, nil, 0, d.lastMainTime, d.haveLastMain, d.raw)
	if err != nil {
		d.log.Error("schema-fatal error decoding home frame", "error", err)
		d.fatalErr = err
	}
}

// homeBase returns the GPS-home FrameDef and the most recently committed
// home values, for seeding the HOME_COORD/HOME_COORD_1 predictors. Both are
// nil if no H schema was declared or no home frame has committed yet.
func (d *Decoder) homeBase() (*FrameDef, []int32) {
	hd, ok := d.frameDefs[FrameHome]
	if !ok {
		return nil, nil
	}
	if d.home == nil {
		return hd, nil
	}
	return hd, d.home.Prev()
}

// completeFrame runs the per-type completion routine (spec.md §4.5) against
// the already-decoded pending frame, returning whether it was accepted.
func (d *Decoder) completeFrame(ft FrameType, size int) bool {
	switch ft {
	case FrameIntra:
		return d.completeIntra()
	case FrameInter:
		return d.completeInter()
	case FrameGPS:
		return d.completeGPS()
	case FrameHome:
		return d.completeHome()
	case FrameEvent:
		return d.completeEvent()
	}
	return false
}

func mainFrameFields(def *FrameDef, values []int32) (iteration, time int64) {
	if i := def.IndexOf("iteration"); i >= 0 {
		iteration = int64(values[i])
	}
	if i := def.IndexOf("time"); i >= 0 {
		time = int64(values[i])
	}
	return iteration, time
}

// completeIntra applies the ValidityGate (intra) and, on acceptance, rotates
// the history ring (spec.md §4.4, §4.5).
func (d *Decoder) completeIntra() bool {
	def := d.frameDefs[FrameIntra]
	cur := d.history.Current()
	iteration, time := mainFrameFields(def, cur)

	res := checkIntra(iteration, time, d.haveLastMain, d.lastMainIteration, d.lastMainTime, &d.sysConfig, d.raw)
	d.lastFrame = Frame{Type: FrameIntra, Values: cloneInt32(cur)}

	if res.accept {
		d.stats.IntentionallyAbsentIterations += res.skippedToAdd
		d.stats.observeFields(def, cur)
		d.lastMainIteration = iteration
		d.lastMainTime = time
		d.haveLastMain = true
		d.mainStreamIsValid = true
		d.history.RotateIntra()
	} else {
		d.mainStreamIsValid = false
		d.history.Invalidate()
	}
	return res.accept
}

// completeInter applies the ValidityGate (inter) and, on acceptance, shifts
// the history ring (spec.md §4.4, §4.5).
func (d *Decoder) completeInter() bool {
	def := d.frameDefs[FrameInter]
	cur := d.history.Current()
	iteration, time := mainFrameFields(def, cur)

	res := checkInter(iteration, time, d.mainStreamIsValid, d.lastMainIteration, d.lastMainTime, d.lastSkipped, d.raw)
	d.lastFrame = Frame{Type: FrameInter, Values: cloneInt32(cur)}

	if res.accept {
		d.stats.IntentionallyAbsentIterations += res.skippedToAdd
		d.stats.observeFields(def, cur)
		d.lastMainIteration = iteration
		d.lastMainTime = time
		d.haveLastMain = true
		d.history.RotateInter()
	} else {
		d.mainStreamIsValid = false
	}
	return res.accept
}

// completeHome commits the decoded home frame and marks GPS home known
// (spec.md §4.5).
func (d *Decoder) completeHome() bool {
	def := d.frameDefs[FrameHome]
	cur := d.home.Current()
	d.stats.observeFields(def, cur)
	d.lastFrame = Frame{Type: FrameHome, Values: cloneInt32(cur)}
	d.home.Commit()
	d.gpsHomeValid = true
	return true
}

// completeGPS reports valid = gpsHomeIsValid: a GPS reading is only
// meaningful once HOME_COORD has a base to predict against (spec.md §4.5).
func (d *Decoder) completeGPS() bool {
	def := d.frameDefs[FrameGPS]
	valid := d.gpsHomeValid
	if valid {
		d.stats.observeFields(def, d.pendingGPS)
	}
	d.lastFrame = Frame{Type: FrameGPS, Values: cloneInt32(d.pendingGPS)}
	return valid
}

// completeEvent commits the pending event as the decoder's last-event record
// iff it was recognized (spec.md §4.6).
func (d *Decoder) completeEvent() bool {
	if d.pendingEventOK {
		d.lastEvent = d.pendingEvent
	}
	return d.pendingEventOK
}

// recordCompletion updates stats and notifies the FrameSink for a frame
// whose completion routine just ran.
func (d *Decoder) recordCompletion(ft FrameType, size int, ok bool) {
	fs := d.stats.FrameType[ft]
	if ok {
		d.stats.recordFrame(ft, size)
		fs.ValidCount++
	} else {
		fs.DesyncCount++
	}
	if ft == FrameEvent {
		d.notify(ok, Frame{}, d.pendingEvent, ft, d.frameStart, size)
	} else {
		d.notify(ok, d.lastFrame, LastEvent{}, ft, d.frameStart, size)
	}
}

// recordCorruption handles a frame whose size exceeded MaxFrameLength, or
// whose boundary couldn't be confirmed before an unrecognized tag or an
// unexpected EOF (spec.md §4.5, §7).
func (d *Decoder) recordCorruption(ft FrameType, size int) {
	d.mainStreamIsValid = false
	d.stats.TotalCorruptFrames++
	d.stats.FrameType[ft].CorruptCount++
	d.notify(false, Frame{Type: ft}, LastEvent{}, ft, d.frameStart, size)
}

// notify invokes the registered FrameSink, if any.
func (d *Decoder) notify(valid bool, f Frame, le LastEvent, ft FrameType, byteOffset, byteLength int) {
	if d.onFrame != nil {
		d.onFrame(valid, f, le, ft, byteOffset, byteLength)
	}
}

func cloneInt32(in []int32) []int32 {
	out := make([]int32, len(in))
	copy(out, in)
	return out
}

/*
NAME
  history.go

DESCRIPTION
  history.go implements the rotating main-frame history ring and the GPS
  home history, following the arena+index pattern recommended in spec.md §9
  to avoid aliasing raw pointers into a buffer that might be rebased.

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

// HistoryRing is a three-slot rotating buffer of main-frame field vectors.
// Slot roles rotate by index rather than by copying: curr is writable,
// prev is read-only history h1, prev2 is read-only history h2. Any of the
// history slots may be "absent" (represented by a negative index), in which
// case predictors referencing it silently become no-ops, per spec.md §3.
type HistoryRing struct {
	fieldCount int
	slots      [3][]int32
	curr       int
	prev       int // -1 if absent
	prev2      int // -1 if absent
}

// newHistoryRing allocates a HistoryRing sized to fieldCount. All slots
// start absent except curr, which is zeroed ready for writing.
func newHistoryRing(fieldCount int) *HistoryRing {
	h := &HistoryRing{fieldCount: fieldCount, prev: -1, prev2: -1}
	for i := range h.slots {
		h.slots[i] = make([]int32, fieldCount)
	}
	return h
}

// Current returns the writable current-frame slot.
func (h *HistoryRing) Current() []int32 { return h.slots[h.curr] }

// Prev returns the h1 (previous) slot, or nil if absent.
func (h *HistoryRing) Prev() []int32 {
	if h.prev < 0 {
		return nil
	}
	return h.slots[h.prev]
}

// Prev2 returns the h2 (previous-previous) slot, or nil if absent.
func (h *HistoryRing) Prev2() []int32 {
	if h.prev2 < 0 {
		return nil
	}
	return h.slots[h.prev2]
}

// RotateIntra implements I-frame rotation (spec.md §4.5): both history
// slots point at the just-written frame (the oldest history any predictor
// can reach after an I-frame is the I-frame itself), then curr advances to a
// fresh slot.
func (h *HistoryRing) RotateIntra() {
	written := h.curr
	h.prev = written
	h.prev2 = written
	h.curr = h.freeSlot(written)
}

// RotateInter implements P-frame rotation: h2 <- h1, h1 <- h0 (the frame
// just written), then curr advances to a fresh slot.
func (h *HistoryRing) RotateInter() {
	written := h.curr
	h.prev2 = h.prev
	h.prev = written
	h.curr = h.freeSlot(written)
}

// freeSlot picks a slot distinct from written, the current prev and the
// current prev2, i.e. the slot that (after the caller has already updated
// prev/prev2 to their new values) is referenced by neither history pointer.
func (h *HistoryRing) freeSlot(written int) int {
	for i := 0; i < 3; i++ {
		if i != written && i != h.prev && i != h.prev2 {
			return i
		}
	}
	return written
}

// Invalidate clears both history references (keeping curr's just-written
// data as the sole seed for the ring) after a rejected I-frame.
func (h *HistoryRing) Invalidate() {
	h.prev = -1
	h.prev2 = -1
}

// HomeHistory is the two-slot rotating buffer for GPS home frames. Only the
// most recently completed home frame is ever read by predictors.
type HomeHistory struct {
	fieldCount int
	slots      [2][]int32
	write      int // index of the slot currently being decoded into.
	committed  int // index of the most recently completed slot, -1 if none.
}

// newHomeHistory allocates a HomeHistory sized to fieldCount.
func newHomeHistory(fieldCount int) *HomeHistory {
	h := &HomeHistory{fieldCount: fieldCount, committed: -1}
	for i := range h.slots {
		h.slots[i] = make([]int32, fieldCount)
	}
	return h
}

// Current returns the writable current slot.
func (h *HomeHistory) Current() []int32 { return h.slots[h.write] }

// Prev returns the most recently completed home frame, or nil if none has
// completed yet.
func (h *HomeHistory) Prev() []int32 {
	if h.committed < 0 {
		return nil
	}
	return h.slots[h.committed]
}

// Commit marks the current write slot as the completed home frame and
// advances the write target to the other slot.
func (h *HomeHistory) Commit() {
	h.committed = h.write
	h.write = 1 - h.write
	// Copy forward so that the new write target starts from the last
	// committed values; a field omitted by the next H-frame before commit
	// would otherwise read as zero rather than "unchanged".
	copy(h.slots[h.write], h.slots[h.committed])
}

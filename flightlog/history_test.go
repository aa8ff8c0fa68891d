/*
NAME
  history_test.go
*/

package flightlog

import "testing"

func TestHistoryRingStartsWithNoHistory(t *testing.T) {
	h := newHistoryRing(2)
	if h.Prev() != nil || h.Prev2() != nil {
		t.Fatal("a freshly allocated ring must report no history")
	}
}

func TestHistoryRingRotateIntraThenInter(t *testing.T) {
	h := newHistoryRing(1)

	h.Current()[0] = 10
	h.RotateIntra() // after an I-frame, both h1 and h2 point at the I-frame.
	if h.Prev() == nil || h.Prev()[0] != 10 {
		t.Fatalf("Prev() = %v, want [10]", h.Prev())
	}
	if h.Prev2() == nil || h.Prev2()[0] != 10 {
		t.Fatalf("Prev2() = %v, want [10]", h.Prev2())
	}

	h.Current()[0] = 20
	h.RotateInter() // h2 <- h1 (10), h1 <- h0 (20).
	if h.Prev()[0] != 20 {
		t.Fatalf("Prev()[0] = %d, want 20", h.Prev()[0])
	}
	if h.Prev2()[0] != 10 {
		t.Fatalf("Prev2()[0] = %d, want 10", h.Prev2()[0])
	}

	h.Current()[0] = 30
	h.RotateInter() // h2 <- h1 (20), h1 <- h0 (30).
	if h.Prev()[0] != 30 || h.Prev2()[0] != 20 {
		t.Fatalf("Prev=%d Prev2=%d, want 30,20", h.Prev()[0], h.Prev2()[0])
	}

	// The current slot must never alias either history slot.
	if &h.Current()[0] == &h.Prev()[0] || &h.Current()[0] == &h.Prev2()[0] {
		t.Fatal("current slot aliases a history slot")
	}
}

func TestHistoryRingInvalidateKeepsCurrent(t *testing.T) {
	h := newHistoryRing(1)
	h.Current()[0] = 5
	h.RotateIntra()
	h.Current()[0] = 6
	h.Invalidate()
	if h.Prev() != nil || h.Prev2() != nil {
		t.Fatal("Invalidate must clear both history references")
	}
	if h.Current()[0] != 6 {
		t.Fatal("Invalidate must not disturb the just-written current slot")
	}
}

func TestHomeHistoryPrevIsLastCommitted(t *testing.T) {
	h := newHomeHistory(1)
	if h.Prev() != nil {
		t.Fatal("a freshly allocated home history must report no previous frame")
	}

	h.Current()[0] = 42
	h.Commit()
	if h.Prev() == nil || h.Prev()[0] != 42 {
		t.Fatalf("Prev() = %v, want [42]", h.Prev())
	}

	// The new write slot must start from the committed values, so a field
	// omitted before the next commit reads as "unchanged" rather than zero.
	if h.Current()[0] != 42 {
		t.Fatalf("Current()[0] = %d, want 42 (carried forward)", h.Current()[0])
	}

	h.Current()[0] = 43
	h.Commit()
	if h.Prev()[0] != 43 {
		t.Fatalf("Prev()[0] = %d, want 43", h.Prev()[0])
	}
}

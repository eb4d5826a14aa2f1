package monitor

import "testing"

func TestActivityTrackerEmptyWindowNeverSpikes(t *testing.T) {
	tr := newActivityTracker(10, 2.0)
	if spike, baseline, _ := tr.observe(50); spike || baseline != 0 {
		t.Errorf("first observation: spike=%v baseline=%v", spike, baseline)
	}
}

func TestActivityTrackerSpike(t *testing.T) {
	tr := newActivityTracker(10, 2.0)
	for _, c := range []int{2, 2, 2} {
		tr.observe(c)
	}
	spike, baseline, ratio := tr.observe(5)
	if !spike {
		t.Fatalf("expected spike: baseline=%v ratio=%v", baseline, ratio)
	}
	if baseline != 2.0 {
		t.Errorf("baseline = %v, want 2.0", baseline)
	}
	if ratio != 2.5 {
		t.Errorf("ratio = %v, want 2.5", ratio)
	}
}

func TestActivityTrackerBaselineExcludesCurrentPoll(t *testing.T) {
	tr := newActivityTracker(10, 2.0)
	tr.observe(1)
	// Baseline is 1 (not (1+10)/2), so 10 is a clear spike.
	spike, baseline, _ := tr.observe(10)
	if !spike || baseline != 1.0 {
		t.Errorf("spike=%v baseline=%v, want true/1.0", spike, baseline)
	}
}

func TestActivityTrackerSingleNewPostIsNotASpike(t *testing.T) {
	tr := newActivityTracker(10, 2.0)
	// Quiet baseline of ~0.25: one new post would be an 8x ratio but a
	// single post never counts as a spike.
	for _, c := range []int{0, 1, 0, 0} {
		tr.observe(c)
	}
	if spike, _, _ := tr.observe(1); spike {
		t.Error("single post should not spike over a quiet baseline")
	}
	if spike, _, _ := tr.observe(2); !spike {
		t.Error("two posts over a quiet baseline should spike")
	}
}

func TestActivityTrackerBelowThreshold(t *testing.T) {
	tr := newActivityTracker(10, 2.0)
	for _, c := range []int{4, 4, 4} {
		tr.observe(c)
	}
	if spike, _, ratio := tr.observe(6); spike {
		t.Errorf("ratio %v below threshold should not spike", ratio)
	}
}

func TestActivityTrackerWindowBounded(t *testing.T) {
	tr := newActivityTracker(3, 2.0)
	for _, c := range []int{100, 1, 1, 1} {
		tr.observe(c)
	}
	// The 100 rolled out of the window, so baseline is 1.
	if b := tr.baseline(); b != 1.0 {
		t.Errorf("baseline = %v, want 1.0", b)
	}
	if len(tr.window) != 3 {
		t.Errorf("window length = %d, want 3", len(tr.window))
	}
}

func TestActivityTrackerZeroBaselineNeverSpikes(t *testing.T) {
	tr := newActivityTracker(10, 2.0)
	for i := 0; i < 5; i++ {
		tr.observe(0)
	}
	if spike, _, _ := tr.observe(100); spike {
		t.Error("zero baseline must not spike regardless of count")
	}
}

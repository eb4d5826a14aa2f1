package monitor

// activityTracker keeps a sliding window of per-poll new-post counts and
// detects spikes against the window mean.
type activityTracker struct {
	window    []int
	size      int
	threshold float64
}

func newActivityTracker(size int, threshold float64) *activityTracker {
	if size < 1 {
		size = 10
	}
	if threshold <= 0 {
		threshold = 2.0
	}
	return &activityTracker{size: size, threshold: threshold}
}

// baseline is the mean of the recorded window. Zero when empty.
func (t *activityTracker) baseline() float64 {
	if len(t.window) == 0 {
		return 0
	}
	sum := 0
	for _, c := range t.window {
		sum += c
	}
	return float64(sum) / float64(len(t.window))
}

// observe evaluates count against the baseline computed from earlier polls
// only, then records it. A spike needs a non-zero baseline, at least two
// posts, and a ratio at or above the threshold.
func (t *activityTracker) observe(count int) (spike bool, baseline, ratio float64) {
	baseline = t.baseline()
	if baseline > 0 {
		ratio = float64(count) / baseline
		spike = count >= 2 && ratio >= t.threshold
	}

	t.window = append(t.window, count)
	if len(t.window) > t.size {
		t.window = t.window[len(t.window)-t.size:]
	}
	return spike, baseline, ratio
}

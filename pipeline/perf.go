package pipeline

import (
	"sync"
	"time"
)

// perfWindow is the number of samples each rolling average covers.
const perfWindow = 50

// timingWindow tracks a rolling average over the last perfWindow durations.
type timingWindow struct {
	samples [perfWindow]time.Duration
	next    int
	count   int
	sum     time.Duration
}

func (w *timingWindow) observe(d time.Duration) {
	if w.count == perfWindow {
		w.sum -= w.samples[w.next]
	} else {
		w.count++
	}
	w.samples[w.next] = d
	w.sum += d
	w.next = (w.next + 1) % perfWindow
}

func (w *timingWindow) average() time.Duration {
	if w.count == 0 {
		return 0
	}
	return w.sum / time.Duration(w.count)
}

// PerfSnapshot is an informational view of recent stage timings.
type PerfSnapshot struct {
	PreProcessAvg  time.Duration
	InferenceAvg   time.Duration
	PostProcessAvg time.Duration
	FramesObserved int64
}

// PerfCounters aggregates per-stage rolling averages. Purely informational;
// nothing in the pipeline branches on these.
type PerfCounters struct {
	mu     sync.Mutex
	pre    timingWindow
	infer  timingWindow
	post   timingWindow
	frames int64
}

// ObserveFrame records one frame's stage durations.
func (p *PerfCounters) ObserveFrame(pre, infer, post time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pre.observe(pre)
	p.infer.observe(infer)
	p.post.observe(post)
	p.frames++
}

// Snapshot returns the current rolling averages.
func (p *PerfCounters) Snapshot() PerfSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PerfSnapshot{
		PreProcessAvg:  p.pre.average(),
		InferenceAvg:   p.infer.average(),
		PostProcessAvg: p.post.average(),
		FramesObserved: p.frames,
	}
}

package segmented

import (
	"fmt"
	"time"

	"github.com/tanq16/segdl/internal/utils"
)

const sampleInterval = 100 * time.Millisecond

// Aggregator samples segment counters and turns them into progress
// notifications. It only reads segment state.
type Aggregator struct {
	Segments   []*Segment
	TotalSize  int64
	Interval   time.Duration
	OnSnapshot func(ProgressSnapshot)
	OnProgress func(message string, percent int)

	now func() time.Time
}

// ComputeSnapshot derives rates for downloaded bytes after elapsed time.
func ComputeSnapshot(downloaded, total int64, elapsed time.Duration) ProgressSnapshot {
	snap := ProgressSnapshot{
		TotalDownloaded: downloaded,
		TotalSize:       total,
		Elapsed:         elapsed,
	}
	if total > 0 {
		snap.Percentage = float64(downloaded) / float64(total) * 100
	}
	if secs := elapsed.Seconds(); secs > 0 {
		snap.ThroughputBytesPerSec = float64(downloaded) / secs
	}
	if snap.ThroughputBytesPerSec > 0 {
		snap.ETASeconds = float64(total-downloaded) / snap.ThroughputBytesPerSec
	}
	return snap
}

func (a *Aggregator) downloaded() int64 {
	var sum int64
	for _, seg := range a.Segments {
		sum += seg.BytesReceived()
	}
	return sum
}

// Run samples until done is closed and returns the last snapshot taken.
// The final sample is not announced through OnProgress since the controller
// owns the terminal notification.
func (a *Aggregator) Run(done <-chan struct{}) ProgressSnapshot {
	now := a.now
	if now == nil {
		now = time.Now
	}
	interval := a.Interval
	if interval <= 0 {
		interval = sampleInterval
	}
	start := now()
	var lastEmit time.Time

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			snap := ComputeSnapshot(a.downloaded(), a.TotalSize, now().Sub(start))
			if a.OnSnapshot != nil {
				a.OnSnapshot(snap)
			}
			return snap
		case <-ticker.C:
			current := now()
			if current.Sub(lastEmit) < sampleInterval {
				continue
			}
			lastEmit = current
			snap := ComputeSnapshot(a.downloaded(), a.TotalSize, current.Sub(start))
			a.emit(snap)
		}
	}
}

func (a *Aggregator) emit(snap ProgressSnapshot) {
	if a.OnSnapshot != nil {
		a.OnSnapshot(snap)
	}
	if a.OnProgress != nil {
		a.OnProgress(FormatSnapshot(snap), int(snap.Percentage))
	}
}

func FormatSnapshot(snap ProgressSnapshot) string {
	return fmt.Sprintf("Downloading... %.2f%% at %s, ETA %s",
		snap.Percentage, utils.FormatRate(snap.ThroughputBytesPerSec), utils.FormatETA(snap.ETASeconds))
}

// Package postprocess - Non-Maximum Suppression for detection candidates.
package postprocess

import (
	"sort"

	"github.com/anpr-ai/go-anpr/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which a lower-scoring box is
	// suppressed.
	IoUThreshold float32
	// ClassAware, if true, suppresses only within the same class.
	ClassAware bool
}

// ApplyGreedyNMS filters overlapping detections using greedy Non-Maximum
// Suppression.
//
// Candidates are sorted by descending confidence, then the highest-scoring
// remaining candidate is accepted and every later candidate overlapping it
// beyond the IoU threshold is suppressed for good. The surviving set is
// deterministic for a given input and is returned in descending confidence
// order.
//
// Arguments:
//   - detections: Candidate detections in any order.
//   - config: NMS configuration.
//
// Returns:
//   - Filtered slice of detections. If no detections are provided, returns nil.
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Result, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	filtered := make([]Result, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.Class != sorted[j].Class {
				continue
			}
			// Suppress if IoU exceeds threshold. Suppressed candidates are
			// never re-activated.
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}

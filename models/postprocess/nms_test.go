package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anpr-ai/go-anpr/images"
)

func TestApplyGreedyNMSSuppressesOverlap(t *testing.T) {
	// Two boxes sharing a 10x10 region, IoU 100/150.
	detections := []Result{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.6, Class: 0},
		{Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 15}, Score: 0.9, Class: 0},
	}

	filtered := ApplyGreedyNMS(detections, &NMSConfig{IoUThreshold: 0.4})

	require.Len(t, filtered, 1, "overlap above threshold keeps only the stronger box")
	assert.InDelta(t, 0.9, float64(filtered[0].Score), 1e-6)
}

func TestApplyGreedyNMSKeepsDisjointBoxes(t *testing.T) {
	detections := []Result{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.9},
		{Box: images.Rect{X1: 50, Y1: 50, X2: 60, Y2: 60}, Score: 0.6},
		{Box: images.Rect{X1: 100, Y1: 0, X2: 110, Y2: 10}, Score: 0.3},
	}

	filtered := ApplyGreedyNMS(detections, &NMSConfig{IoUThreshold: 0.4})
	require.Len(t, filtered, 3)
	assert.InDelta(t, 0.9, float64(filtered[0].Score), 1e-6, "output is ordered by descending confidence")
	assert.InDelta(t, 0.3, float64(filtered[2].Score), 1e-6)
}

func TestApplyGreedyNMSClassAware(t *testing.T) {
	same := images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
	detections := []Result{
		{Box: same, Score: 0.9, Class: 2},
		{Box: same, Score: 0.8, Class: 7},
	}

	filtered := ApplyGreedyNMS(detections, &NMSConfig{IoUThreshold: 0.4, ClassAware: true})
	assert.Len(t, filtered, 2, "class-aware mode keeps identical boxes of different classes")

	filtered = ApplyGreedyNMS(detections, &NMSConfig{IoUThreshold: 0.4})
	assert.Len(t, filtered, 1, "class-agnostic mode suppresses across classes")
}

func TestApplyGreedyNMSInvariants(t *testing.T) {
	detections := []Result{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.9},
		{Box: images.Rect{X1: 2, Y1: 2, X2: 12, Y2: 12}, Score: 0.8},
		{Box: images.Rect{X1: 4, Y1: 4, X2: 14, Y2: 14}, Score: 0.7},
		{Box: images.Rect{X1: 40, Y1: 40, X2: 50, Y2: 50}, Score: 0.6},
	}
	cfg := &NMSConfig{IoUThreshold: 0.4}

	filtered := ApplyGreedyNMS(detections, cfg)
	assert.LessOrEqual(t, len(filtered), len(detections), "NMS never grows the set")
	for i := range filtered {
		for j := i + 1; j < len(filtered); j++ {
			iou := images.CalculateIoU(filtered[i].Box, filtered[j].Box)
			assert.LessOrEqual(t, float64(iou), float64(cfg.IoUThreshold),
				"no surviving pair may overlap beyond the threshold")
		}
	}
}

func TestApplyGreedyNMSEmptyInput(t *testing.T) {
	assert.Nil(t, ApplyGreedyNMS(nil, &NMSConfig{IoUThreshold: 0.4}))
}

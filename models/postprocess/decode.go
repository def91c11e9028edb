// Package postprocess - raw tensor decoding for YOLO-family detection heads.
package postprocess

import (
	"github.com/anpr-ai/go-anpr/images"
	"github.com/rs/zerolog"
)

// MaskCoefficientCount is the per-detection coefficient vector length emitted
// by segmentation heads.
const MaskCoefficientCount = 32

// TensorLayout identifies how a flat detection tensor is laid out in memory.
type TensorLayout int

const (
	// LayoutChannelMajor means the tensor is [1, values, count]: all entries'
	// first value, then all entries' second value, and so on.
	LayoutChannelMajor TensorLayout = iota
	// LayoutBoxMajor means the tensor is [1, count, values]: each entry's
	// values are contiguous.
	LayoutBoxMajor
)

func (l TensorLayout) String() string {
	if l == LayoutChannelMajor {
		return "channel-major"
	}
	return "box-major"
}

// DecodeConfig controls how a raw output tensor is decoded into candidates.
type DecodeConfig struct {
	// ImageWidth and ImageHeight are the source frame dimensions used to map
	// normalized box coordinates back into pixels.
	ImageWidth  int
	ImageHeight int
	// NumClasses is the expected class-score count per entry.
	NumClasses int
	// WithMaskCoefficients indicates the model carries a 32-value mask
	// coefficient tail per entry.
	WithMaskCoefficients bool
	// ConfidenceThreshold drops candidates scoring below it.
	ConfidenceThreshold float32
	// AcceptedClasses restricts decoding to these class indices. An empty map
	// accepts every class.
	AcceptedClasses map[int]bool
}

// DecodeStats reports what the decoder inferred about the tensor it was
// handed. It replaces any global mutable debug state: every call returns its
// own snapshot.
type DecodeStats struct {
	Layout         TensorLayout
	ValuesPerEntry int
	Entries        int
	Kept           int
	// ShapeMismatch is set when the tensor's values axis did not equal the
	// configured 4+classes[+32] expectation and a best-effort layout guess
	// was used instead.
	ShapeMismatch bool
}

// DecodeDetections converts a flat model output buffer into detection
// candidates.
//
// The tensor shape has three dimensions: batch, and two axes whose order is
// not fixed across model exports. The values axis (4 box values + class
// scores + optional 32 mask coefficients) is recognized as the smaller of the
// two remaining axes; detection heads always emit far more anchors than
// values per anchor. Each entry is read as center-x, center-y, width, height
// (normalized 0..1) followed by the class-score range, arg-maxed for the best
// class. Entries below the confidence threshold or outside the accepted class
// set are dropped.
//
// Arguments:
//   - data: The flat float32 output buffer.
//   - shape: The logical tensor shape, e.g. [1, 116, 8400] or [1, 8400, 116].
//   - cfg: Decode configuration.
//   - log: Destination for shape-mismatch warnings.
//
// Returns:
//   - []Result: Candidates in tensor order. An empty tensor yields an empty
//     slice, never an error.
//   - DecodeStats: Per-call layout and count diagnostics.
func DecodeDetections(data []float32, shape []int64, cfg DecodeConfig, log zerolog.Logger) ([]Result, DecodeStats) {
	stats := DecodeStats{}
	if len(data) == 0 || len(shape) < 3 {
		return []Result{}, stats
	}

	d1 := int(shape[len(shape)-2])
	d2 := int(shape[len(shape)-1])
	if d1 <= 0 || d2 <= 0 {
		return []Result{}, stats
	}

	expected := 4 + cfg.NumClasses
	if cfg.WithMaskCoefficients {
		expected += MaskCoefficientCount
	}

	// The values axis is the smaller one; ties resolve to channel-major, the
	// layout ultralytics exports use.
	var values, count int
	if d1 <= d2 {
		stats.Layout = LayoutChannelMajor
		values, count = d1, d2
	} else {
		stats.Layout = LayoutBoxMajor
		values, count = d2, d1
	}

	if values != expected {
		stats.ShapeMismatch = true
		log.Warn().
			Int("values_per_entry", values).
			Int("expected", expected).
			Str("layout", stats.Layout.String()).
			Msg("unexpected detection tensor shape, decoding best-effort")
	}
	stats.ValuesPerEntry = values
	stats.Entries = count

	if len(data) < values*count {
		return []Result{}, stats
	}

	// value reads element v of entry i regardless of memory layout.
	value := func(i, v int) float32 {
		if stats.Layout == LayoutChannelMajor {
			return data[v*count+i]
		}
		return data[i*values+v]
	}

	// Best-effort class range: whatever sits between the box and the (maybe
	// absent) coefficient tail.
	classCount := values - 4
	coeffs := 0
	if cfg.WithMaskCoefficients && classCount > MaskCoefficientCount {
		classCount -= MaskCoefficientCount
		coeffs = MaskCoefficientCount
	}

	results := make([]Result, 0, 16)
	for i := 0; i < count; i++ {
		bestClass := 0
		bestScore := float32(0)
		for c := 0; c < classCount; c++ {
			if s := value(i, 4+c); s > bestScore {
				bestScore = s
				bestClass = c
			}
		}
		if bestScore < cfg.ConfidenceThreshold {
			continue
		}
		if len(cfg.AcceptedClasses) > 0 && !cfg.AcceptedClasses[bestClass] {
			continue
		}

		cx := value(i, 0)
		cy := value(i, 1)
		w := value(i, 2)
		h := value(i, 3)

		box := images.Rect{
			X1: (cx - w/2) * float32(cfg.ImageWidth),
			Y1: (cy - h/2) * float32(cfg.ImageHeight),
			X2: (cx + w/2) * float32(cfg.ImageWidth),
			Y2: (cy + h/2) * float32(cfg.ImageHeight),
		}.Clamp(float32(cfg.ImageWidth), float32(cfg.ImageHeight))

		r := Result{Box: box, Score: bestScore, Class: bestClass}
		if coeffs > 0 {
			r.Coefficients = make([]float32, coeffs)
			for m := 0; m < coeffs; m++ {
				r.Coefficients[m] = value(i, 4+classCount+m)
			}
		}
		results = append(results, r)
	}
	stats.Kept = len(results)
	return results, stats
}

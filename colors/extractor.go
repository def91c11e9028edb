package colors

import (
	"image"

	"github.com/anpr-ai/go-anpr/images"
)

const (
	// activationThreshold is the minimum mask activation for a cell to count
	// as part of the object.
	activationThreshold = 0.4
	// strideDivisor bounds sampling cost: stride = minMaskDim/strideDivisor.
	strideDivisor = 24
	// darkMeanThreshold marks a pixel as dark when its mean channel value is
	// below it.
	darkMeanThreshold = 60
	// pureLow / pureHigh bound the pure-black and pure-white artifact bands.
	pureLow  = 10
	pureHigh = 245
	// brightnessMin / brightnessMax bound plausible vehicle paint brightness.
	brightnessMin = 20
	brightnessMax = 220
	// darkPredominance is the dark fraction above which black is accepted as
	// the actual vehicle color rather than shadow.
	darkPredominance = 0.6
	// minQualifyingSamples is the floor below which no color is reported.
	minQualifyingSamples = 20
	// centerWeightRadius is the fraction of the smaller mask dimension inside
	// which samples get double weight, biasing toward the vehicle body.
	centerWeightRadius = 0.25
)

// Config holds the user-tunable color extraction settings.
type Config struct {
	// EnableSecondaryColor reports a second color when a distinct secondary
	// cluster exists.
	EnableSecondaryColor bool
	// EnableGrayFiltering enables the gray-ratio noise exclusion.
	EnableGrayFiltering bool
	// GrayExclusionThresholdPercent is the minimum share of low-saturation
	// samples (0..100) gray needs to stay a candidate label.
	GrayExclusionThresholdPercent float32
}

// Extractor maps masked pixel regions to vehicle color labels.
type Extractor struct {
	cfg Config
}

// NewExtractor creates a color extractor.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract determines the dominant vehicle color under a detection mask.
//
// Mask cells are sampled on a stride proportional to the mask size. The
// first pass decides whether dark pixels are the vehicle itself (black car)
// or shadow artifacts to exclude; the second collects qualifying samples
// with double weight near the mask center. The samples are clustered with
// k-means in HSV space and the top cluster's centroid is snapped to the
// reference palette.
//
// Arguments:
//   - img: The source frame.
//   - box: The detection box in source pixel coordinates.
//   - mask: The prototype-space mask crop aligned with box. A nil mask
//     yields no color.
//
// Returns:
//   - Color: Primary color, or None when fewer than 20 samples qualify.
//   - Color: Secondary color when enabled and a distinct second cluster
//     exists, None otherwise.
func (e *Extractor) Extract(img image.Image, box images.Rect, mask *images.Plane) (Color, Color) {
	if img == nil || mask == nil || mask.Width == 0 || mask.Height == 0 {
		return None, None
	}

	// First pass: decide whether dark pixels are paint or shadow.
	var dark, valid int
	e.forEachSample(img, box, mask, func(r, g, b uint8, nearCenter bool) {
		mean := (int(r) + int(g) + int(b)) / 3
		if !naturalPixel(r, g, b) || mean < brightnessMin || mean > brightnessMax {
			return
		}
		valid++
		if mean < darkMeanThreshold {
			dark++
		}
	})

	blackPredominant := valid > 0 && float32(dark)/float32(valid) > darkPredominance

	// Second pass: collect the qualifying samples.
	samples := make([]sample, 0, 256)
	e.forEachSample(img, box, mask, func(r, g, b uint8, nearCenter bool) {
		mean := (int(r) + int(g) + int(b)) / 3
		if !naturalPixel(r, g, b) || mean < brightnessMin || mean > brightnessMax {
			return
		}
		if mean < darkMeanThreshold && !blackPredominant {
			// Shadow artifact, not vehicle paint.
			return
		}
		weight := 1
		if nearCenter {
			weight = 2
		}
		samples = append(samples, sample{hsv: RGBToHSV(r, g, b), r: r, g: g, b: b, weight: weight})
	})

	if len(samples) < minQualifyingSamples {
		return None, None
	}

	excludeGray := false
	if e.cfg.EnableGrayFiltering {
		grayCount := 0
		for _, s := range samples {
			if s.hsv.S < graySatThreshold {
				grayCount++
			}
		}
		ratio := float32(grayCount) / float32(len(samples)) * 100
		if ratio < e.cfg.GrayExclusionThresholdPercent {
			excludeGray = true
		}
	}

	clusters := runKMeans(samples)
	if len(clusters) == 0 {
		return None, None
	}

	primary := NearestPaletteColor(clusters[0].MeanHSV(), excludeGray)
	secondary := None
	if e.cfg.EnableSecondaryColor && len(clusters) > 1 {
		if c := NearestPaletteColor(clusters[1].MeanHSV(), excludeGray); c != primary {
			secondary = c
		}
	}
	return primary, secondary
}

// forEachSample walks the mask on the sampling stride and invokes fn for
// every active cell, mapping the cell back to a source frame pixel.
func (e *Extractor) forEachSample(img image.Image, box images.Rect, mask *images.Plane, fn func(r, g, b uint8, nearCenter bool)) {
	bounds := img.Bounds()
	mw, mh := mask.Width, mask.Height

	stride := min(mw, mh) / strideDivisor
	if stride < 1 {
		stride = 1
	}

	cx := float32(mw) / 2
	cy := float32(mh) / 2
	radius := centerWeightRadius * float32(min(mw, mh))

	for my := 0; my < mh; my += stride {
		for mx := 0; mx < mw; mx += stride {
			if mask.At(mx, my) <= activationThreshold {
				continue
			}

			px := int(box.X1 + (float32(mx)+0.5)*box.Width()/float32(mw))
			py := int(box.Y1 + (float32(my)+0.5)*box.Height()/float32(mh))
			if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
				continue
			}

			r, g, b, _ := img.At(px, py).RGBA()

			dx := float32(mx) - cx
			dy := float32(my) - cy
			nearCenter := dx*dx+dy*dy <= radius*radius

			fn(uint8(r>>8), uint8(g>>8), uint8(b>>8), nearCenter)
		}
	}
}

// naturalPixel rejects pure-black and pure-white pixels, which come from
// rendering artifacts and blown highlights rather than paint.
func naturalPixel(r, g, b uint8) bool {
	if r <= pureLow && g <= pureLow && b <= pureLow {
		return false
	}
	if r >= pureHigh && g >= pureHigh && b >= pureHigh {
		return false
	}
	return true
}

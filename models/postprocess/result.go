// Package postprocess - Postprocessing of raw detection model outputs.
package postprocess

import "github.com/anpr-ai/go-anpr/images"

// Result represents a single detection candidate.
type Result struct {
	// The bounding box of the result in source image pixel coordinates.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
	// Coefficients holds the per-detection mask coefficient vector when the
	// model emits segmentation output, nil otherwise.
	Coefficients []float32
}

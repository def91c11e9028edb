// Package inference - black-box model inference engines.
package inference

import (
	"context"
	"image"
)

// Output is one raw model output tensor with its shape metadata.
type Output struct {
	Data  []float32
	Shape []int64
}

// Engine abstracts the underlying inference runtime. Implementations are
// exclusive: only one Infer call runs at a time, since interpreters are not
// assumed thread-safe. Infer honors context cancellation between phases but
// never blocks indefinitely.
type Engine interface {
	// Infer runs the model on one frame and returns its raw output tensors.
	// The first output is the detection tensor; a second, when present,
	// carries the prototype mask planes.
	Infer(ctx context.Context, img image.Image) ([]Output, error)
	// Name identifies the engine for logs.
	Name() string
	// Close releases the engine's resources.
	Close() error
}

// WarmUp runs a few throwaway inferences to populate runtime caches.
func WarmUp(ctx context.Context, engine Engine, runs int) error {
	blank := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := 0; i < runs; i++ {
		if _, err := engine.Infer(ctx, blank); err != nil {
			return err
		}
	}
	return nil
}

// Package masks - reconstructs per-detection segmentation masks from
// prototype planes and per-detection coefficient vectors.
package masks

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/anpr-ai/go-anpr/images"
)

// DisplaySize is the fixed resolution every reconstructed mask is upsampled
// to before being handed to the color extractor and overlay layer.
const DisplaySize = 128

// contrastGamma lifts mid-range activations after min-max normalization.
const contrastGamma = 0.7

// Prototypes wraps the shared prototype tensor a segmentation head emits
// alongside its detections. Shape is height x width x channels with 32
// channels.
type Prototypes struct {
	dense    *tensor.Dense
	height   int
	width    int
	channels int
}

// NewPrototypes builds a prototype set from a flat buffer in H*W*C order.
//
// Arguments:
//   - data: Flat float32 buffer of length height*width*channels.
//   - height, width: Prototype plane resolution.
//   - channels: Channel count, normally 32.
//
// Returns:
//   - *Prototypes: The wrapped tensor.
//   - error: If the buffer does not match the declared shape.
func NewPrototypes(data []float32, height, width, channels int) (*Prototypes, error) {
	if len(data) != height*width*channels {
		return nil, errors.Errorf("prototype buffer has %d values, shape %dx%dx%d needs %d",
			len(data), height, width, channels, height*width*channels)
	}
	dense := tensor.New(
		tensor.WithShape(height, width, channels),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data),
	)
	return &Prototypes{dense: dense, height: height, width: width, channels: channels}, nil
}

// Height returns the prototype plane height.
func (p *Prototypes) Height() int { return p.height }

// Width returns the prototype plane width.
func (p *Prototypes) Width() int { return p.width }

// Reconstructor combines prototypes with detection coefficients.
type Reconstructor struct {
	protos *Prototypes
	// Source frame dimensions, used to map detection boxes into
	// prototype-space coordinates.
	imageWidth  int
	imageHeight int
}

// NewReconstructor creates a mask reconstructor for one frame's prototype
// output. A nil prototype set is allowed and yields nil masks, which
// downstream stages treat as "skip color extraction".
func NewReconstructor(protos *Prototypes, imageWidth, imageHeight int) *Reconstructor {
	return &Reconstructor{protos: protos, imageWidth: imageWidth, imageHeight: imageHeight}
}

// Reconstruct produces the per-object mask for one detection.
//
// Per prototype pixel, the mask activation is the dot product of the
// detection's coefficient vector with the prototype's channel vector, pushed
// through a numerically stable sigmoid. The full-resolution plane is then
// min-max normalized and gamma-corrected to boost contrast, cropped to the
// detection's box mapped into prototype space (clamped, at least 1x1), and
// upsampled with nearest-neighbor to DisplaySize x DisplaySize.
//
// Arguments:
//   - box: Detection bounding box in source image pixel coordinates.
//   - coefficients: The detection's mask coefficient vector.
//
// Returns:
//   - *images.Plane: The cropped, display-resolution mask, or nil when no
//     prototype output exists or the coefficient vector is absent.
//   - *images.Plane: The prototype-space crop before upsampling, used by the
//     color extractor to map samples back into the source frame.
func (r *Reconstructor) Reconstruct(box images.Rect, coefficients []float32) (*images.Plane, *images.Plane) {
	if r.protos == nil || len(coefficients) == 0 {
		return nil, nil
	}
	if len(coefficients) != r.protos.channels {
		return nil, nil
	}

	h, w, c := r.protos.height, r.protos.width, r.protos.channels
	raw := r.protos.dense.Data().([]float32)

	plane := images.NewPlane(w, h)
	minV := float32(math32.MaxFloat32)
	maxV := float32(-math32.MaxFloat32)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := (y*w + x) * c
			var dot float32
			for k := 0; k < c; k++ {
				dot += coefficients[k] * raw[base+k]
			}
			v := stableSigmoid(dot)
			plane.Data[y*w+x] = v
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}

	// Min-max normalize over the full prototype resolution, then gamma-lift.
	span := maxV - minV
	if span > 1e-6 {
		for i, v := range plane.Data {
			plane.Data[i] = math32.Pow((v-minV)/span, contrastGamma)
		}
	}

	protoBox := box.Scale(float32(w)/float32(r.imageWidth), float32(h)/float32(r.imageHeight)).
		Clamp(float32(w), float32(h))
	crop := plane.Crop(int(protoBox.X1), int(protoBox.Y1), int(protoBox.X2), int(protoBox.Y2))

	return crop.ResizeNearest(DisplaySize, DisplaySize), crop
}

// stableSigmoid computes 1/(1+exp(-x)) without overflowing for large |x|.
func stableSigmoid(x float32) float32 {
	if x >= 0 {
		return 1 / (1 + math32.Exp(-x))
	}
	e := math32.Exp(x)
	return e / (1 + e)
}

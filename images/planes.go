// Package images - float plane utilities for mask post-processing.
package images

// Plane is a single-channel float32 raster stored row-major.
type Plane struct {
	Width  int
	Height int
	Data   []float32
}

// NewPlane allocates a zeroed plane of the given size.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Data: make([]float32, width*height)}
}

// At returns the value at (x, y). Out-of-range coordinates return 0.
func (p *Plane) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0
	}
	return p.Data[y*p.Width+x]
}

// Set writes the value at (x, y). Out-of-range coordinates are ignored.
func (p *Plane) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	p.Data[y*p.Width+x] = v
}

// Crop extracts a sub-plane. The region is clamped to the plane bounds and is
// never smaller than 1x1.
func (p *Plane) Crop(x1, y1, x2, y2 int) *Plane {
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > p.Width {
		x2 = p.Width
	}
	if y2 > p.Height {
		y2 = p.Height
	}
	if x2 <= x1 {
		x2 = x1 + 1
	}
	if y2 <= y1 {
		y2 = y1 + 1
	}
	out := NewPlane(x2-x1, y2-y1)
	for y := y1; y < y2; y++ {
		copy(out.Data[(y-y1)*out.Width:(y-y1+1)*out.Width], p.Data[y*p.Width+x1:y*p.Width+x2])
	}
	return out
}

// ResizeNearest scales the plane to the target size using nearest-neighbor
// sampling. Nearest is the right filter for activation masks: interpolating
// would smear the object boundary.
//
// Arguments:
//   - width: Target width in pixels.
//   - height: Target height in pixels.
//
// Returns:
//   - *Plane: The resized plane. The source plane is not modified.
func (p *Plane) ResizeNearest(width, height int) *Plane {
	out := NewPlane(width, height)
	if p.Width == 0 || p.Height == 0 {
		return out
	}
	sx := float32(p.Width) / float32(width)
	sy := float32(p.Height) / float32(height)
	for y := 0; y < height; y++ {
		srcY := int(float32(y) * sy)
		if srcY >= p.Height {
			srcY = p.Height - 1
		}
		for x := 0; x < width; x++ {
			srcX := int(float32(x) * sx)
			if srcX >= p.Width {
				srcX = p.Width - 1
			}
			out.Data[y*width+x] = p.Data[srcY*p.Width+srcX]
		}
	}
	return out
}

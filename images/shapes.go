// Package images - geometry primitives shared by the detection pipeline.
package images

// Rect is a lightweight bounding box in pixel coordinates.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float32 { return r.X2 - r.X1 }

// Height returns the vertical extent of the box.
func (r Rect) Height() float32 { return r.Y2 - r.Y1 }

// Area returns the box area. Degenerate boxes have area 0.
func (r Rect) Area() float32 {
	w := r.Width()
	h := r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Center returns the geometric center of the box.
func (r Rect) Center() (float32, float32) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// ContainsPoint reports whether the point (x, y) lies inside the box.
func (r Rect) ContainsPoint(x, y float32) bool {
	return x >= r.X1 && x < r.X2 && y >= r.Y1 && y < r.Y2
}

// Intersects reports whether the two boxes share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.X1 < o.X2 && o.X1 < r.X2 && r.Y1 < o.Y2 && o.Y1 < r.Y2
}

// Clamp constrains the box to the [0,0,width,height] region, preserving a
// minimum 1x1 extent so a crop of the result is never empty.
func (r Rect) Clamp(width, height float32) Rect {
	c := r
	if c.X1 < 0 {
		c.X1 = 0
	}
	if c.Y1 < 0 {
		c.Y1 = 0
	}
	if c.X2 > width {
		c.X2 = width
	}
	if c.Y2 > height {
		c.Y2 = height
	}
	if c.X2 <= c.X1 {
		c.X2 = c.X1 + 1
		if c.X2 > width {
			c.X1 = width - 1
			c.X2 = width
		}
	}
	if c.Y2 <= c.Y1 {
		c.Y2 = c.Y1 + 1
		if c.Y2 > height {
			c.Y1 = height - 1
			c.Y2 = height
		}
	}
	return c
}

// Scale maps the box by independent x/y factors, e.g. from image space into
// prototype-mask space.
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{X1: r.X1 * sx, Y1: r.Y1 * sy, X2: r.X2 * sx, Y2: r.Y2 * sy}
}

// CalculateIoU computes the Intersection over Union of two boxes.
//
// IoU = Area of Intersection / Area of Union
//
//   - 1.0 means the boxes are identical.
//   - 0.0 means the boxes do not overlap at all.
//
// The intersection corner coordinates are the max of the top-left corners and
// the min of the bottom-right corners; a non-positive width or height means
// the boxes are disjoint. The union follows the inclusion-exclusion rule
// Union(A, B) = Area(A) + Area(B) - Intersection(A, B). Degenerate
// (zero-area) boxes always yield 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return interArea / unionArea
}

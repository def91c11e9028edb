// Package colors - vehicle color extraction from masked pixel samples.
package colors

import "github.com/chewxy/math32"

// HSV holds a hue in degrees [0,360) and saturation/value in [0,1].
type HSV struct {
	H, S, V float32
}

// RGBToHSV converts 8-bit RGB channels to HSV.
func RGBToHSV(r, g, b uint8) HSV {
	rf := float32(r) / 255
	gf := float32(g) / 255
	bf := float32(b) / 255

	maxC := max(rf, gf, bf)
	minC := min(rf, gf, bf)
	delta := maxC - minC

	var h float32
	switch {
	case delta == 0:
		h = 0
	case maxC == rf:
		h = 60 * math32.Mod((gf-bf)/delta, 6)
	case maxC == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float32
	if maxC > 0 {
		s = delta / maxC
	}

	return HSV{H: h, S: s, V: maxC}
}

// HueDistance returns the circular distance between two hues in degrees,
// always in [0,180].
func HueDistance(a, b float32) float32 {
	d := math32.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

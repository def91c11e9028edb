package colors

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anpr-ai/go-anpr/images"
)

func uniformImage(w, h int, r, g, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func fullMask(w, h int) *images.Plane {
	m := images.NewPlane(w, h)
	for i := range m.Data {
		m.Data[i] = 1
	}
	return m
}

func TestExtractDarkBlueVehicle(t *testing.T) {
	img := uniformImage(96, 96, 30, 40, 160)
	mask := fullMask(48, 48)
	box := images.Rect{X1: 0, Y1: 0, X2: 96, Y2: 96}

	e := NewExtractor(Config{})
	primary, secondary := e.Extract(img, box, mask)

	assert.Equal(t, Blue, primary, "dark blue paint maps to blue, not black")
	assert.Equal(t, None, secondary)
}

func TestExtractBlackVehicle(t *testing.T) {
	// Dark but not pure black: mean 40, above the pure-black artifact band.
	img := uniformImage(96, 96, 40, 40, 40)
	e := NewExtractor(Config{})

	primary, _ := e.Extract(img, images.Rect{X1: 0, Y1: 0, X2: 96, Y2: 96}, fullMask(48, 48))
	assert.Equal(t, Black, primary, "when dark pixels dominate they are the paint, not shadow")
}

func TestExtractRejectsPureArtifacts(t *testing.T) {
	e := NewExtractor(Config{})
	box := images.Rect{X1: 0, Y1: 0, X2: 96, Y2: 96}

	primary, _ := e.Extract(uniformImage(96, 96, 0, 0, 0), box, fullMask(48, 48))
	assert.Equal(t, None, primary, "pure black pixels are rendering artifacts")

	primary, _ = e.Extract(uniformImage(96, 96, 255, 255, 255), box, fullMask(48, 48))
	assert.Equal(t, None, primary, "blown-white pixels are not paint")
}

func TestExtractNilMask(t *testing.T) {
	e := NewExtractor(Config{})
	primary, secondary := e.Extract(uniformImage(32, 32, 200, 20, 20), images.Rect{X1: 0, Y1: 0, X2: 32, Y2: 32}, nil)
	assert.Equal(t, None, primary)
	assert.Equal(t, None, secondary)
}

func TestExtractTooFewSamples(t *testing.T) {
	// A 4x4 mask yields at most 16 samples, under the 20-sample floor.
	e := NewExtractor(Config{})
	primary, _ := e.Extract(uniformImage(96, 96, 200, 20, 20), images.Rect{X1: 0, Y1: 0, X2: 96, Y2: 96}, fullMask(4, 4))
	assert.Equal(t, None, primary)
}

func TestExtractInactiveMaskCellsAreSkipped(t *testing.T) {
	// Left half red and active, right half green but masked out.
	img := image.NewRGBA(image.Rect(0, 0, 96, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 96; x++ {
			if x < 48 {
				img.SetRGBA(x, y, color.RGBA{R: 200, G: 20, B: 20, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 20, G: 150, B: 30, A: 255})
			}
		}
	}
	mask := images.NewPlane(48, 48)
	for y := 0; y < 48; y++ {
		for x := 0; x < 24; x++ {
			mask.Set(x, y, 1)
		}
	}

	e := NewExtractor(Config{})
	primary, _ := e.Extract(img, images.Rect{X1: 0, Y1: 0, X2: 96, Y2: 96}, mask)
	assert.Equal(t, Red, primary, "only pixels under active mask cells are sampled")
}

func TestExtractSecondaryColor(t *testing.T) {
	// Two-tone: most of the body red, a band of yellow.
	img := image.NewRGBA(image.Rect(0, 0, 96, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 96; x++ {
			if y < 64 {
				img.SetRGBA(x, y, color.RGBA{R: 200, G: 20, B: 20, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 230, G: 220, B: 30, A: 255})
			}
		}
	}

	e := NewExtractor(Config{EnableSecondaryColor: true})
	primary, secondary := e.Extract(img, images.Rect{X1: 0, Y1: 0, X2: 96, Y2: 96}, fullMask(48, 48))
	assert.Equal(t, Red, primary)
	assert.Equal(t, Yellow, secondary)

	e = NewExtractor(Config{})
	_, secondary = e.Extract(img, images.Rect{X1: 0, Y1: 0, X2: 96, Y2: 96}, fullMask(48, 48))
	assert.Equal(t, None, secondary, "secondary reporting is off by default")
}

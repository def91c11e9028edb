package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNearestPaletteColorChromatic(t *testing.T) {
	// Dark blue paint still reads blue, not black: hue dominates for
	// saturated colors.
	darkBlue := RGBToHSV(20, 35, 120)
	assert.Equal(t, Blue, NearestPaletteColor(darkBlue, false))

	assert.Equal(t, Red, NearestPaletteColor(RGBToHSV(200, 20, 20), false))
	assert.Equal(t, Yellow, NearestPaletteColor(RGBToHSV(230, 220, 20), false))
	assert.Equal(t, Green, NearestPaletteColor(RGBToHSV(20, 150, 30), false))
}

func TestNearestPaletteColorAchromatic(t *testing.T) {
	assert.Equal(t, White, NearestPaletteColor(RGBToHSV(240, 240, 240), false))
	assert.Equal(t, Black, NearestPaletteColor(RGBToHSV(15, 15, 15), false))
	assert.Equal(t, Gray, NearestPaletteColor(RGBToHSV(128, 128, 128), false))
}

func TestNearestPaletteColorExcludeGray(t *testing.T) {
	mid := RGBToHSV(128, 128, 128)
	assert.Equal(t, Gray, NearestPaletteColor(mid, false))

	excluded := NearestPaletteColor(mid, true)
	assert.NotEqual(t, Gray, excluded, "gray must never win when excluded")
	assert.NotEqual(t, None, excluded, "a label is still produced from the rest of the palette")
}

func TestPaletteDistanceHueWraps(t *testing.T) {
	// Hue 350 is near red (hue 0), not far from it.
	nearRed := HSV{H: 350, S: 0.9, V: 0.8}
	assert.Equal(t, Red, NearestPaletteColor(nearRed, false))
}

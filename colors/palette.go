package colors

// Color is a vehicle color label from the fixed reference vocabulary.
type Color string

// The reference palette. Detected cluster centroids are snapped to the
// nearest of these.
const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	White  Color = "white"
	Black  Color = "black"
	Gray   Color = "gray"
	Yellow Color = "yellow"
	// None indicates no color could be determined.
	None Color = ""
)

// graySatThreshold is the saturation below which a color reads as achromatic.
const graySatThreshold = 0.15

// paletteEntry pairs a label with its reference point in HSV space.
type paletteEntry struct {
	label Color
	ref   HSV
}

var palette = []paletteEntry{
	{Red, HSV{H: 0, S: 1, V: 0.85}},
	{Blue, HSV{H: 240, S: 1, V: 0.85}},
	{Green, HSV{H: 120, S: 1, V: 0.6}},
	{White, HSV{H: 0, S: 0, V: 1}},
	{Black, HSV{H: 0, S: 0, V: 0.05}},
	{Gray, HSV{H: 0, S: 0, V: 0.5}},
	{Yellow, HSV{H: 60, S: 1, V: 0.9}},
}

// paletteDistance is the perceptual distance used to snap a centroid to the
// palette. Hue dominates for chromatic pairs; when either side is achromatic
// the hue is meaningless, and when both are achromatic the value channel is
// what separates white, gray and black, so it is weighted up.
func paletteDistance(a, b HSV) float32 {
	aGray := a.S < graySatThreshold
	bGray := b.S < graySatThreshold

	ds := a.S - b.S
	dv := a.V - b.V
	switch {
	case aGray && bGray:
		return 2*dv*dv + ds*ds
	case aGray || bGray:
		return ds*ds + dv*dv
	default:
		dh := HueDistance(a.H, b.H) / 180
		return dh*dh + ds*ds + 0.5*dv*dv
	}
}

// NearestPaletteColor snaps an HSV centroid to the closest palette label.
//
// Arguments:
//   - c: The centroid to classify.
//   - excludeGray: Drop Gray from the candidate set (used when the gray
//     ratio of the sample population marked gray as noise).
//
// Returns:
//   - Color: The nearest palette label.
func NearestPaletteColor(c HSV, excludeGray bool) Color {
	best := None
	bestDist := float32(0)
	for _, entry := range palette {
		if excludeGray && entry.label == Gray {
			continue
		}
		d := paletteDistance(c, entry.ref)
		if best == None || d < bestDist {
			best = entry.label
			bestDist = d
		}
	}
	return best
}

package watchlist

import (
	"strings"

	"github.com/anpr-ai/go-anpr/colors"
	"github.com/anpr-ai/go-anpr/plates"
)

// Mode selects which detected attributes a watchlist match compares. Modes
// that do not include the plate never require OCR to have run at all.
type Mode int

const (
	// ModePlate matches on plate digits alone.
	ModePlate Mode = iota
	// ModePlateColor matches on plate digits and color.
	ModePlateColor
	// ModePlateType matches on plate digits and vehicle type.
	ModePlateType
	// ModePlateColorType matches on plate digits, color and vehicle type.
	ModePlateColorType
	// ModeColorType matches on color and vehicle type.
	ModeColorType
	// ModeColor matches on color alone.
	ModeColor
)

var modeNames = map[Mode]string{
	ModePlate:          "plate",
	ModePlateColor:     "plate+color",
	ModePlateType:      "plate+type",
	ModePlateColorType: "plate+color+type",
	ModeColorType:      "color+type",
	ModeColor:          "color",
}

func (m Mode) String() string { return modeNames[m] }

// ParseMode maps a configuration string to a Mode. Unknown values fall back
// to ModePlate.
func ParseMode(s string) Mode {
	for m, name := range modeNames {
		if name == s {
			return m
		}
	}
	return ModePlate
}

// NeedsPlate reports whether the mode compares the plate.
func (m Mode) NeedsPlate() bool {
	return m == ModePlate || m == ModePlateColor || m == ModePlateType || m == ModePlateColorType
}

// NeedsColor reports whether the mode compares the vehicle color.
func (m Mode) NeedsColor() bool {
	return m == ModePlateColor || m == ModePlateColorType || m == ModeColorType || m == ModeColor
}

// NeedsType reports whether the mode compares the vehicle type.
func (m Mode) NeedsType() bool {
	return m == ModePlateType || m == ModePlateColorType || m == ModeColorType
}

// Detected bundles the attributes of one observed vehicle as seen by the
// match engine.
type Detected struct {
	PlateText   string
	Color       colors.Color
	VehicleType string
}

// Match decides whether any watchlist entry matches the detected attributes
// under the given mode. An empty entry list never matches.
//
// Plate comparison works on numeric digits only, ignoring separators, and is
// gated on an Israeli-format digit count: a detected plate with fewer than 7
// or more than 8 digits never matches in a plate-dependent mode, regardless
// of watchlist content. An ambiguous nine-digit read arrives as two
// alternatives joined by " or "; each alternative is compared on its own.
//
// Arguments:
//   - d: The detected vehicle attributes.
//   - mode: The active detection mode.
//   - entries: The current watchlist.
//
// Returns:
//   - bool: Whether at least one entry satisfies the mode's required fields.
func Match(d Detected, mode Mode, entries []Entry) bool {
	var candidates []string
	if mode.NeedsPlate() {
		for _, alt := range strings.Split(d.PlateText, " or ") {
			digits := plates.DigitsOnly(alt)
			if len(digits) == 7 || len(digits) == 8 {
				candidates = append(candidates, digits)
			}
		}
		if len(candidates) == 0 {
			return false
		}
	}

	for _, e := range entries {
		if mode.NeedsPlate() {
			entryDigits := plates.DigitsOnly(e.Plate)
			found := false
			for _, c := range candidates {
				if c == entryDigits {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if mode.NeedsColor() && e.Color != d.Color {
			continue
		}
		if mode.NeedsType() && e.VehicleType != d.VehicleType {
			continue
		}
		return true
	}
	return false
}

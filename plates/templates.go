// Package plates - OCR text normalization against country plate templates.
package plates

// CharType classifies one plate position as a letter or a digit.
type CharType int

const (
	// Letter marks a position that holds A-Z.
	Letter CharType = iota
	// Digit marks a position that holds 0-9.
	Digit
)

// Template describes one country's plate format. Templates are configuration
// data; the pipeline only reads them.
type Template struct {
	// Country is the ISO-style country code the template belongs to.
	Country string
	// Pattern is the per-position character type sequence.
	Pattern []CharType
	// Priority orders templates; lower values are preferred on ties.
	Priority int
	// Active disables a template without removing it.
	Active bool
}

// Length returns the number of positions the template covers.
func (t Template) Length() int { return len(t.Pattern) }

// ParsePattern builds a pattern from a marker string where 'N' is a digit
// position and 'L' a letter position. Unknown markers are treated as digits.
func ParsePattern(s string) []CharType {
	pattern := make([]CharType, 0, len(s))
	for _, c := range s {
		if c == 'L' || c == 'l' {
			pattern = append(pattern, Letter)
		} else {
			pattern = append(pattern, Digit)
		}
	}
	return pattern
}

// DefaultTemplates returns the built-in template set. Israeli 7 and 8 digit
// formats come first; the European style letter-digit mixes are lower
// priority.
func DefaultTemplates() []Template {
	return []Template{
		{Country: "IL", Pattern: ParsePattern("NNNNNNN"), Priority: 1, Active: true},
		{Country: "IL", Pattern: ParsePattern("NNNNNNNN"), Priority: 2, Active: true},
		{Country: "DE", Pattern: ParsePattern("LLLLNNNN"), Priority: 5, Active: false},
		{Country: "UK", Pattern: ParsePattern("LLNNLLL"), Priority: 5, Active: false},
	}
}

package plates

import (
	"sort"
	"strings"
)

// acceptConfidence is the per-match floor; candidates at or below it are
// discarded.
const acceptConfidence = 0.5

// validConfidence is the overall floor; a best match at or below it falls
// back to the cleaned, unformatted text.
const validConfidence = 0.7

// Per-position score contributions.
const (
	scoreExact         = 1.0
	scoreConvertible   = 0.8
	scoreUnconvertible = 0.3
)

// Normalized is the outcome of plate text normalization.
type Normalized struct {
	// Text is the formatted plate when Valid, the cleaned raw text otherwise.
	Text string
	// Confidence is the best template match score in [0,1].
	Confidence float32
	// Valid reports whether Text conforms to an active template.
	Valid bool
	// Country is the matched template's country code, empty when not Valid.
	Country string
}

// Normalizer scores OCR reads against the configured plate templates.
type Normalizer struct {
	templates []Template
}

// NewNormalizer creates a normalizer over the given template set. Inactive
// templates are ignored; the rest are ordered by ascending priority.
func NewNormalizer(templates []Template) *Normalizer {
	active := make([]Template, 0, len(templates))
	for _, t := range templates {
		if t.Active && t.Length() > 0 {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})
	return &Normalizer{templates: active}
}

// CleanText strips everything but letters and digits and uppercases the rest.
func CleanText(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize cleans a raw OCR read, expands its confusion variants, scores
// every variant against every active template and returns the best result.
//
// Candidates are ranked by longest formatted length first, then highest
// confidence, then lowest template priority value. When the winner's
// confidence is not above 0.7 the cleaned text is returned unformatted with
// Valid false. An empty template set also yields the cleaned text.
//
// Arguments:
//   - raw: The raw recognized text.
//
// Returns:
//   - Normalized: The best formatted plate, or the cleaned fallback.
func (n *Normalizer) Normalize(raw string) Normalized {
	cleaned := CleanText(raw)
	if cleaned == "" || len(n.templates) == 0 {
		return Normalized{Text: cleaned}
	}

	best := Normalized{}
	bestPriority := 0
	for _, variant := range GenerateVariants(cleaned) {
		for _, tmpl := range n.templates {
			text, conf := matchTemplate(variant, tmpl)
			if conf <= acceptConfidence {
				continue
			}
			if better(text, conf, tmpl.Priority, best, bestPriority) {
				best = Normalized{Text: text, Confidence: conf, Valid: true, Country: tmpl.Country}
				bestPriority = tmpl.Priority
			}
		}
	}

	if !best.Valid || best.Confidence <= validConfidence {
		return Normalized{Text: cleaned, Confidence: best.Confidence}
	}
	return best
}

// better implements the candidate ordering: longest text, then confidence,
// then lower priority value.
func better(text string, conf float32, priority int, best Normalized, bestPriority int) bool {
	if !best.Valid {
		return true
	}
	if len(text) != len(best.Text) {
		return len(text) > len(best.Text)
	}
	if conf != best.Confidence {
		return conf > best.Confidence
	}
	return priority < bestPriority
}

// matchTemplate scores a variant against one template. Equal lengths score
// position by position; a longer variant slides a template-length window and
// keeps the best substring. A shorter variant cannot match.
func matchTemplate(variant string, tmpl Template) (string, float32) {
	tLen := tmpl.Length()
	switch {
	case len(variant) == tLen:
		return scoreWindow(variant, tmpl)
	case len(variant) > tLen:
		bestText := ""
		bestConf := float32(0)
		for start := 0; start+tLen <= len(variant); start++ {
			text, conf := scoreWindow(variant[start:start+tLen], tmpl)
			if conf > bestConf {
				bestText, bestConf = text, conf
			}
		}
		return bestText, bestConf
	default:
		return "", 0
	}
}

// scoreWindow scores one template-length window. Exact type matches score
// 1.0, a crossed type with a known conversion scores 0.8 and converts the
// character, an unconvertible crossed type scores 0.3 and keeps it.
func scoreWindow(window string, tmpl Template) (string, float32) {
	out := []byte(window)
	var total float32
	for i := 0; i < len(window); i++ {
		c := window[i]
		isDigit := c >= '0' && c <= '9'
		switch {
		case tmpl.Pattern[i] == Digit && isDigit, tmpl.Pattern[i] == Letter && !isDigit:
			total += scoreExact
		case tmpl.Pattern[i] == Digit && !isDigit:
			if d, ok := letterToDigit[c]; ok {
				out[i] = d
				total += scoreConvertible
			} else {
				total += scoreUnconvertible
			}
		default: // template wants a letter, got a digit
			if l, ok := digitToLetter[c]; ok {
				out[i] = l
				total += scoreConvertible
			} else {
				total += scoreUnconvertible
			}
		}
	}
	return string(out), total / float32(len(window))
}

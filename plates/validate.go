package plates

// ValidateManualInput checks user-entered text against the active templates
// with no confusion corrections: every position's character type must match
// the template exactly.
//
// Arguments:
//   - text: The user-entered plate text. Separators are stripped before
//     checking.
//
// Returns:
//   - bool: Whether the cleaned text exactly fits any active template.
func (n *Normalizer) ValidateManualInput(text string) bool {
	cleaned := CleanText(text)
	if cleaned == "" {
		return false
	}
	for _, tmpl := range n.templates {
		if tmpl.Length() != len(cleaned) {
			continue
		}
		ok := true
		for i := 0; i < len(cleaned); i++ {
			isDigit := cleaned[i] >= '0' && cleaned[i] <= '9'
			if (tmpl.Pattern[i] == Digit) != isDigit {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

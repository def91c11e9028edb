package plates

// DigitsOnly strips everything but 0-9 from s.
func DigitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// ValidateAndFormatPlate formats a digit-only plate read from recognizers
// that emit no letters.
//
// Accepted digit counts after stripping non-digits:
//   - 7 digits format as NN-NNN-NN.
//   - 8 digits format as NNN-NN-NNN.
//   - 9 digits are ambiguous one-off reads: both 8-digit candidates obtained
//     by dropping the first or the last digit are returned, joined by " or ".
//
// Anything else is rejected.
//
// Arguments:
//   - raw: The raw recognized text.
//
// Returns:
//   - string: The formatted plate, or "" when the digit count is invalid.
//   - bool: Whether the read was accepted.
func ValidateAndFormatPlate(raw string) (string, bool) {
	digits := DigitsOnly(raw)
	switch len(digits) {
	case 7:
		return digits[:2] + "-" + digits[2:5] + "-" + digits[5:], true
	case 8:
		return formatEight(digits), true
	case 9:
		dropFirst := formatEight(digits[1:])
		dropLast := formatEight(digits[:8])
		return dropFirst + " or " + dropLast, true
	default:
		return "", false
	}
}

func formatEight(d string) string {
	return d[:3] + "-" + d[3:5] + "-" + d[5:]
}

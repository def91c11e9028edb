package plates

// confusionTable maps characters OCR engines routinely misread to the
// visually similar alternatives worth trying. Both directions are listed
// explicitly so variant generation stays a flat lookup.
var confusionTable = map[byte][]byte{
	'0': {'O', 'Q', 'D'},
	'O': {'0'},
	'Q': {'0'},
	'D': {'0'},
	'1': {'I', 'L'},
	'I': {'1'},
	'L': {'1'},
	'2': {'Z'},
	'Z': {'2'},
	'4': {'A'},
	'A': {'4'},
	'5': {'S'},
	'S': {'5'},
	'6': {'G'},
	'G': {'6'},
	'8': {'B'},
	'B': {'8'},
}

// digitToLetter and letterToDigit are the known cross-type conversions a
// template match may apply at reduced score.
var digitToLetter = map[byte]byte{
	'0': 'O', '1': 'I', '2': 'Z', '4': 'A', '5': 'S', '6': 'G', '8': 'B',
}

var letterToDigit = map[byte]byte{
	'O': '0', 'Q': '0', 'D': '0', 'I': '1', 'L': '1', 'Z': '2', 'A': '4', 'S': '5', 'G': '6', 'B': '8',
}

const (
	// maxVariants caps confusion-variant expansion.
	maxVariants = 100
	// maxVariantLength disables full expansion for long reads; beyond it only
	// the two wholesale heuristic corrections are tried.
	maxVariantLength = 10
)

// GenerateVariants expands a cleaned plate read into its bounded set of
// character-confusion variants. The unmodified input is always first. The
// expansion is an iterative frontier walk over the positions, never
// recursion, and stops hard at 100 variants. Reads longer than 10 characters
// skip expansion entirely and fall back to two wholesale corrections:
// letters-to-digits and digits-to-letters.
//
// Arguments:
//   - cleaned: Uppercased alphanumeric text from CleanText.
//
// Returns:
//   - []string: The variant set, deduplicated, input first.
func GenerateVariants(cleaned string) []string {
	if cleaned == "" {
		return []string{""}
	}

	if len(cleaned) > maxVariantLength {
		// Combinatorial blowup guard.
		out := []string{cleaned}
		if v := applyAll(cleaned, letterToDigit); v != cleaned {
			out = append(out, v)
		}
		if v := applyAll(cleaned, digitToLetter); v != cleaned && v != out[len(out)-1] {
			out = append(out, v)
		}
		return out
	}

	seen := map[string]bool{cleaned: true}
	frontier := []string{cleaned}

	for pos := 0; pos < len(cleaned) && len(seen) < maxVariants; pos++ {
		next := frontier
		for _, variant := range frontier {
			alternatives, ok := confusionTable[variant[pos]]
			if !ok {
				continue
			}
			for _, alt := range alternatives {
				candidate := variant[:pos] + string(alt) + variant[pos+1:]
				if seen[candidate] {
					continue
				}
				if len(seen) >= maxVariants {
					break
				}
				seen[candidate] = true
				next = append(next, candidate)
			}
		}
		frontier = next
	}

	return frontier
}

// applyAll substitutes every mapped character in s.
func applyAll(s string, table map[byte]byte) string {
	b := []byte(s)
	for i := range b {
		if r, ok := table[b[i]]; ok {
			b[i] = r
		}
	}
	return string(b)
}

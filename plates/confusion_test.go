package plates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVariantsInputFirst(t *testing.T) {
	variants := GenerateVariants("12O45")
	require.NotEmpty(t, variants)
	assert.Equal(t, "12O45", variants[0], "the unmodified input always leads the set")
}

func TestGenerateVariantsExpandsConfusions(t *testing.T) {
	variants := GenerateVariants("O1")
	assert.Contains(t, variants, "O1")
	assert.Contains(t, variants, "01", "O is a misread 0")
	assert.Contains(t, variants, "OI")
	assert.Contains(t, variants, "0I")
	assert.Contains(t, variants, "OL")
}

func TestGenerateVariantsNoConfusableCharacters(t *testing.T) {
	variants := GenerateVariants("377")
	assert.Equal(t, []string{"377"}, variants, "3 and 7 have no confusion entries")
}

func TestGenerateVariantsCapped(t *testing.T) {
	// Ten maximally confusable positions would explode combinatorially.
	variants := GenerateVariants("0000000000")
	assert.LessOrEqual(t, len(variants), 100)
	assert.Equal(t, "0000000000", variants[0])

	seen := map[string]bool{}
	for _, v := range variants {
		assert.False(t, seen[v], "variants must be unique: %s", v)
		seen[v] = true
	}
}

func TestGenerateVariantsLongReadWholesaleOnly(t *testing.T) {
	variants := GenerateVariants("OO1122334455")
	require.NotEmpty(t, variants)
	assert.Equal(t, "OO1122334455", variants[0])
	assert.LessOrEqual(t, len(variants), 3, "long reads get only the two wholesale corrections")
	assert.Contains(t, variants, "001122334455", "letters-to-digits wholesale correction")
}

func TestGenerateVariantsEmpty(t *testing.T) {
	assert.Equal(t, []string{""}, GenerateVariants(""))
}

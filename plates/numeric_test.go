package plates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "1234567", DigitsOnly("12-345-67"))
	assert.Equal(t, "1234567", DigitsOnly("AB12345x67"))
	assert.Equal(t, "", DigitsOnly("no digits"))
}

func TestValidateAndFormatPlateSevenDigits(t *testing.T) {
	got, ok := ValidateAndFormatPlate("1234567")
	assert.True(t, ok)
	assert.Equal(t, "12-345-67", got)
}

func TestValidateAndFormatPlateEightDigits(t *testing.T) {
	got, ok := ValidateAndFormatPlate("12345678")
	assert.True(t, ok)
	assert.Equal(t, "123-45-678", got)
}

func TestValidateAndFormatPlateNineDigitsAmbiguous(t *testing.T) {
	got, ok := ValidateAndFormatPlate("123456789")
	assert.True(t, ok)
	assert.Equal(t, "234-56-789 or 123-45-678", got, "both one-off candidates are reported")
}

func TestValidateAndFormatPlateStripsSeparators(t *testing.T) {
	got, ok := ValidateAndFormatPlate("12:345:67")
	assert.True(t, ok)
	assert.Equal(t, "12-345-67", got)
}

func TestValidateAndFormatPlateRejectsOtherLengths(t *testing.T) {
	for _, raw := range []string{"123456", "1234567890", "", "abcdefg"} {
		got, ok := ValidateAndFormatPlate(raw)
		assert.False(t, ok, "length of %q is not a plate", raw)
		assert.Equal(t, "", got)
	}
}

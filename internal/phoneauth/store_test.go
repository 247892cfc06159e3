package phoneauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCode_SixDigits(t *testing.T) {
	code, err := GenerateCode()
	assert.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "character %q is not a digit", r)
	}
}

func TestGenerateCode_CoversAllDigits(t *testing.T) {
	// every digit must be reachable; with 3000 samples a missing one points
	// at a skewed mapping, not bad luck
	seen := map[rune]bool{}
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		assert.NoError(t, err)
		for _, r := range code {
			seen[r] = true
		}
	}
	for r := '0'; r <= '9'; r++ {
		assert.True(t, seen[r], "digit %q never produced", r)
	}
}

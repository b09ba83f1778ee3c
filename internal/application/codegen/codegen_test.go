package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateShape(t *testing.T) {
	code := Generate(4, map[string]struct{}{})

	assert.Len(t, code, 4)
	for _, r := range code {
		assert.True(t, r >= 'A' && r <= 'Z', "unexpected rune %q", r)
	}
}

func TestGenerateSkipsExisting(t *testing.T) {
	// Все однобуквенные коды кроме "Q" заняты
	existing := make(map[string]int, len(alphabet))
	for _, r := range alphabet {
		if r != 'Q' {
			existing[string(r)] = 1
		}
	}

	for range 50 {
		assert.Equal(t, "Q", Generate(1, existing))
	}
}

func TestGenerateUnique(t *testing.T) {
	existing := make(map[string]struct{})

	for range 500 {
		code := Generate(4, existing)
		_, dup := existing[code]
		assert.False(t, dup)
		existing[code] = struct{}{}
	}
}

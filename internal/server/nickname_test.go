package server

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestGenerateNickname(t *testing.T) {
	t.Parallel()

	for range 20 {
		name := GenerateNickname()
		assert.NotEmpty(t, name)
		assert.True(t, unicode.IsUpper([]rune(name)[0]))
	}
}

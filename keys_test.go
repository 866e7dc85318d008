package cimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyBindings(t *testing.T) {
	kb := DefaultKeyBindings()

	tests := []struct {
		key      rune
		expected Command
	}{
		{'h', MoveImageLeft},
		{'l', MoveImageRight},
		{'k', MoveImageUp},
		{'j', MoveImageDown},
		{'n', NextImage},
		{'p', PreviousImage},
		{'K', ZoomIn},
		{'J', ZoomOut},
		{'r', Reset},
		{'q', QuitProgram},
		{Escape, QuitProgram},
		{'x', NoCommand},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			assert.Equal(t, tt.expected, kb.Lookup(tt.key))
		})
	}
}

func TestEscapeAlwaysQuits(t *testing.T) {
	kb := KeyBindings{'x': QuitProgram}
	assert.Equal(t, QuitProgram, kb.Lookup(Escape))
	assert.Equal(t, NoCommand, kb.Lookup('q'))
}

func TestParseCommand(t *testing.T) {
	for _, c := range Commands() {
		parsed, err := ParseCommand(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCommand("launch_rockets")
	assert.Error(t, err)
	assert.Equal(t, "none", NoCommand.String())
}

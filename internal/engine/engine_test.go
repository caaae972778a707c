package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freeeve/chessgraph/features/internal/engine"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		score       int
		mate        bool
		blackToMove bool
		want        float64
	}{
		{"white to move cp", 35, false, false, 0.35},
		{"black to move cp flips", 35, false, true, -0.35},
		{"white mates", 3, true, false, 100},
		{"black to move and mates", 2, true, true, -100},
		{"black to move and gets mated", -4, true, true, 100},
		{"mate zero is negative", 0, true, false, -100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, engine.Normalize(tc.score, tc.mate, tc.blackToMove), 1e-9)
		})
	}
}

func TestOpenValidates(t *testing.T) {
	_, err := engine.Open(engine.Config{Depth: 10})
	assert.Error(t, err)

	_, err = engine.Open(engine.Config{Path: "stockfish", Depth: 0})
	assert.Error(t, err)
}

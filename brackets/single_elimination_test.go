package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePairingsFollowsSeedOrder(t *testing.T) {
	g := NewSingleEliminationGenerator()

	pairings, err := g.GeneratePairings([]string{"T1", "T2", "T3", "T4"})
	require.NoError(t, err)

	assert.Equal(t, []Pairing{
		{Position: 0, TeamA: "T1", TeamB: "T2"},
		{Position: 1, TeamA: "T3", TeamB: "T4"},
	}, pairings)
}

func TestGeneratePairingsIsDeterministic(t *testing.T) {
	g := NewSingleEliminationGenerator()
	field := make([]string, 16)
	for i := range field {
		field[i] = fmt.Sprintf("team-%02d", 15-i)
	}

	first, err := g.GeneratePairings(field)
	require.NoError(t, err)
	for range 10 {
		again, err := g.GeneratePairings(field)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	require.Len(t, first, 8)
	for i, p := range first {
		assert.Equal(t, field[2*i], p.TeamA)
		assert.Equal(t, field[2*i+1], p.TeamB)
	}
}

func TestGeneratePairingsRejectsInvalidField(t *testing.T) {
	g := NewSingleEliminationGenerator()

	tests := []struct {
		name  string
		field []string
		err   error
	}{
		{"empty", nil, ErrInvalidFieldSize},
		{"single team", []string{"a"}, ErrInvalidFieldSize},
		{"odd", []string{"a", "b", "c"}, ErrInvalidFieldSize},
		{"six", []string{"a", "b", "c", "d", "e", "f"}, ErrInvalidFieldSize},
		{"duplicate", []string{"a", "b", "a", "d"}, ErrDuplicateTeam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.GeneratePairings(tt.field)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestStageCount(t *testing.T) {
	assert.Equal(t, 1, StageCount(2))
	assert.Equal(t, 2, StageCount(4))
	assert.Equal(t, 3, StageCount(8))
	assert.Equal(t, 4, StageCount(16))
	assert.Equal(t, 0, StageCount(6))
	assert.Equal(t, 0, StageCount(0))
}

func TestForFormat(t *testing.T) {
	g, err := ForFormat(SingleEliminationFormat)
	require.NoError(t, err)
	assert.Equal(t, SingleEliminationFormat, g.GetName())

	_, err = ForFormat("round-robin")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.False(t, SupportedFormat("double-elimination"))
}

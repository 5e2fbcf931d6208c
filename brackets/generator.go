package brackets

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFieldSize = errors.New("number of teams must be a power of two and at least two")
	ErrDuplicateTeam    = errors.New("team appears more than once in the field")
	ErrUnknownFormat    = errors.New("unknown bracket format")
)

// Pairing is one match of a stage. Position is the match order inside the stage.
type Pairing struct {
	Position int
	TeamA    string
	TeamB    string
}

// BracketGenerator builds the pairings of one stage from the ordered field of teams still in play.
type BracketGenerator interface {
	GeneratePairings(teamIDs []string) ([]Pairing, error)

	GetName() string
}

var generators = map[string]BracketGenerator{
	SingleEliminationFormat: NewSingleEliminationGenerator(),
}

func ForFormat(format string) (BracketGenerator, error) {
	g, ok := generators[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return g, nil
}

func SupportedFormat(format string) bool {
	_, ok := generators[format]
	return ok
}

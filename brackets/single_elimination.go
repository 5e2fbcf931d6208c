package brackets

import "math/bits"

const SingleEliminationFormat = "single-elimination"

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return SingleEliminationFormat
}

// GeneratePairings pairs the field sequentially: (0,1), (2,3), ... The order of teamIDs is the
// seeding and is never changed, so stage 1 follows entry order and later stages follow match order.
func (g *SingleEliminationGenerator) GeneratePairings(teamIDs []string) ([]Pairing, error) {
	n := len(teamIDs)
	if !IsPowerOfTwo(n) || n < 2 {
		return nil, ErrInvalidFieldSize
	}

	seen := make(map[string]struct{}, n)
	for _, id := range teamIDs {
		if _, dup := seen[id]; dup {
			return nil, ErrDuplicateTeam
		}
		seen[id] = struct{}{}
	}

	pairings := make([]Pairing, 0, n/2)
	for i := 0; i < n; i += 2 {
		pairings = append(pairings, Pairing{
			Position: i / 2,
			TeamA:    teamIDs[i],
			TeamB:    teamIDs[i+1],
		})
	}
	return pairings, nil
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// StageCount is the number of stages needed to reduce n teams to a champion.
func StageCount(n int) int {
	if !IsPowerOfTwo(n) || n < 2 {
		return 0
	}
	return bits.TrailingZeros(uint(n))
}

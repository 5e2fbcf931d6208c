package models

import (
	"slices"
	"time"
)

type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusResolved StageStatus = "resolved"
)

type Stage struct {
	ID           string      `json:"id"`
	TournamentID string      `json:"tournament_id"`
	Number       int         `json:"number"`
	Status       StageStatus `json:"status"`
	EndDate      *time.Time  `json:"end_date,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`

	Matches []Match `json:"matches"`
}

func (s *Stage) Unresolved() []Match {
	var out []Match
	for _, m := range s.Matches {
		if m.Status != MatchStatusResolved {
			out = append(out, m)
		}
	}
	return out
}

func (s *Stage) AllResolved() bool {
	return len(s.Matches) > 0 && len(s.Unresolved()) == 0
}

// HasReports reports whether any captain or administrator acted on a match of the stage.
func (s *Stage) HasReports() bool {
	return slices.ContainsFunc(s.Matches, func(m Match) bool {
		return m.ReportA != nil || m.ReportB != nil || m.Winner != nil
	})
}

// Winners returns the winning team of every match in match order. ok is false if a match is undecided.
func (s *Stage) Winners() (winners []string, ok bool) {
	ordered := slices.Clone(s.Matches)
	slices.SortFunc(ordered, func(a, b Match) int { return a.Position - b.Position })
	for _, m := range ordered {
		w, decided := m.WinnerTeamID()
		if !decided {
			return nil, false
		}
		winners = append(winners, w)
	}
	return winners, true
}

func (s *Stage) MatchByID(id string) (*Match, bool) {
	for i := range s.Matches {
		if s.Matches[i].ID == id {
			return &s.Matches[i], true
		}
	}
	return nil, false
}

func (s *Stage) MatchOfTeam(teamID string) (*Match, bool) {
	for i := range s.Matches {
		if _, ok := s.Matches[i].Slot(teamID); ok {
			return &s.Matches[i], true
		}
	}
	return nil, false
}

func (s *Stage) Clone() *Stage {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndDate != nil {
		d := *s.EndDate
		c.EndDate = &d
	}
	c.Matches = make([]Match, len(s.Matches))
	for i := range s.Matches {
		c.Matches[i] = *s.Matches[i].Clone()
	}
	return &c
}

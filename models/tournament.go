package models

import (
	"math/bits"
	"slices"
	"time"
)

type TournamentStatus string

const (
	TournamentStatusSigning  TournamentStatus = "signing"
	TournamentStatusRunning  TournamentStatus = "running"
	TournamentStatusFinished TournamentStatus = "finished"
)

const TournamentTypeSingleElimination = "single-elimination"

// TournamentEntry records a team signed into a tournament. Position is the entry order used for seeding.
type TournamentEntry struct {
	TeamID            string    `json:"team_id"`
	TeamName          string    `json:"team_name"`
	Position          int       `json:"position"`
	SignedAt          time.Time `json:"signed_at"`
	EliminatedInStage *int      `json:"eliminated_in_stage,omitempty"`
}

type Tournament struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	NumberOfCompetitors int              `json:"number_of_competitors"`
	Type                string           `json:"type"`
	Status              TournamentStatus `json:"status"`
	// CurrentStage is 0 while signing, then the number of the running or last played stage.
	CurrentStage int        `json:"current_stage"`
	CreatorID    string     `json:"creator_id"`
	WinnerTeamID *string    `json:"winner_team_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`

	Entries []TournamentEntry `json:"entries"`

	Teams  []Team  `json:"teams,omitempty"`
	Stages []Stage `json:"stages,omitempty"`
}

// TeamIDs returns the entered teams in entry order.
func (t *Tournament) TeamIDs() []string {
	entries := slices.Clone(t.Entries)
	slices.SortFunc(entries, func(a, b TournamentEntry) int { return a.Position - b.Position })
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.TeamID)
	}
	return ids
}

func (t *Tournament) HasTeam(teamID string) bool {
	return slices.ContainsFunc(t.Entries, func(e TournamentEntry) bool { return e.TeamID == teamID })
}

func (t *Tournament) IsFull() bool {
	return len(t.Entries) >= t.NumberOfCompetitors
}

// StageCount is the number of single-elimination rounds needed to reduce the field to one team.
func (t *Tournament) StageCount() int {
	if t.NumberOfCompetitors <= 1 {
		return 0
	}
	return bits.Len(uint(t.NumberOfCompetitors)) - 1
}

func (t *Tournament) IsLastStage() bool {
	return t.CurrentStage == t.StageCount()
}

func (t *Tournament) MarkEliminated(teamID string, stage int) {
	for i := range t.Entries {
		if t.Entries[i].TeamID == teamID {
			s := stage
			t.Entries[i].EliminatedInStage = &s
			return
		}
	}
}

func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	c := *t
	if t.WinnerTeamID != nil {
		w := *t.WinnerTeamID
		c.WinnerTeamID = &w
	}
	if t.FinishedAt != nil {
		f := *t.FinishedAt
		c.FinishedAt = &f
	}
	c.Entries = make([]TournamentEntry, len(t.Entries))
	for i, e := range t.Entries {
		if e.EliminatedInStage != nil {
			s := *e.EliminatedInStage
			e.EliminatedInStage = &s
		}
		c.Entries[i] = e
	}
	c.Teams = nil
	c.Stages = nil
	return &c
}

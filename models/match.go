package models

import "time"

type MatchStatus string

const (
	MatchStatusPending              MatchStatus = "pending"
	MatchStatusAwaitingConfirmation MatchStatus = "awaiting_confirmation"
	MatchStatusResolved             MatchStatus = "resolved"
	MatchStatusDisputed             MatchStatus = "disputed"
)

type MatchResolution string

const (
	ResolvedByCaptains MatchResolution = "captains"
	ResolvedByAdmin    MatchResolution = "admin"
)

// Match pairs two teams. Slot 0 is TeamAID, slot 1 is TeamBID; reports and the winner are slot numbers.
type Match struct {
	ID           string           `json:"id"`
	StageID      string           `json:"stage_id"`
	TournamentID string           `json:"tournament_id"`
	Position     int              `json:"position"`
	TeamAID      string           `json:"team_a_id"`
	TeamBID      string           `json:"team_b_id"`
	ReportA      *int             `json:"report_a,omitempty"`
	ReportB      *int             `json:"report_b,omitempty"`
	Winner       *int             `json:"winner,omitempty"`
	Status       MatchStatus      `json:"status"`
	ResolvedBy   *MatchResolution `json:"resolved_by,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (m *Match) Slot(teamID string) (int, bool) {
	switch teamID {
	case m.TeamAID:
		return 0, true
	case m.TeamBID:
		return 1, true
	}
	return 0, false
}

func (m *Match) TeamInSlot(slot int) string {
	if slot == 0 {
		return m.TeamAID
	}
	return m.TeamBID
}

func (m *Match) Report(slot int) *int {
	if slot == 0 {
		return m.ReportA
	}
	return m.ReportB
}

func (m *Match) SetReport(slot, winner int) {
	w := winner
	if slot == 0 {
		m.ReportA = &w
	} else {
		m.ReportB = &w
	}
}

func (m *Match) WinnerTeamID() (string, bool) {
	if m.Winner == nil {
		return "", false
	}
	return m.TeamInSlot(*m.Winner), true
}

func (m *Match) LoserTeamID() (string, bool) {
	if m.Winner == nil {
		return "", false
	}
	return m.TeamInSlot(1 - *m.Winner), true
}

func (m *Match) Clone() *Match {
	c := *m
	c.ReportA = clonePtr(m.ReportA)
	c.ReportB = clonePtr(m.ReportB)
	c.Winner = clonePtr(m.Winner)
	c.ResolvedBy = clonePtr(m.ResolvedBy)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

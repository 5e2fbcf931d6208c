package models

import (
	"slices"
	"time"
)

type TeamStatus string

const (
	TeamStatusFree      TeamStatus = "free"
	TeamStatusFull      TeamStatus = "full"
	TeamStatusSigned    TeamStatus = "signed"
	TeamStatusCompeting TeamStatus = "competing"
)

// TeamMember is a roster slot. Members are kept in join order.
type TeamMember struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type JoinRequest struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type Team struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CaptainID string     `json:"captain_id"`
	Status    TeamStatus `json:"status"`
	Capacity  int        `json:"capacity"`
	// TournamentID references the tournament entry the team is signed into or competing in.
	TournamentID *string   `json:"tournament_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Members  []TeamMember  `json:"members"`
	Requests []JoinRequest `json:"requests,omitempty"`
}

func (t *Team) IsMember(userID string) bool {
	return slices.ContainsFunc(t.Members, func(m TeamMember) bool { return m.UserID == userID })
}

func (t *Team) MemberByName(username string) (TeamMember, bool) {
	for _, m := range t.Members {
		if m.Username == username {
			return m, true
		}
	}
	return TeamMember{}, false
}

func (t *Team) RemoveMember(userID string) {
	t.Members = slices.DeleteFunc(t.Members, func(m TeamMember) bool { return m.UserID == userID })
}

func (t *Team) RequestByName(username string) (JoinRequest, bool) {
	for _, r := range t.Requests {
		if r.Username == username {
			return r, true
		}
	}
	return JoinRequest{}, false
}

func (t *Team) HasRequestFrom(userID string) bool {
	return slices.ContainsFunc(t.Requests, func(r JoinRequest) bool { return r.UserID == userID })
}

func (t *Team) RemoveRequest(userID string) {
	t.Requests = slices.DeleteFunc(t.Requests, func(r JoinRequest) bool { return r.UserID == userID })
}

// RosterStatus is the status a team not entered in a tournament has for its current roster size.
func (t *Team) RosterStatus() TeamStatus {
	if len(t.Members) >= t.Capacity {
		return TeamStatusFull
	}
	return TeamStatusFree
}

// Editable reports whether the roster may change. Rosters freeze once the team is entered in a live tournament.
func (t *Team) Editable() bool {
	return t.Status != TeamStatusSigned && t.Status != TeamStatusCompeting
}

// ReleaseFromTournament clears the tournament back-reference and restores the roster status.
func (t *Team) ReleaseFromTournament() {
	t.TournamentID = nil
	t.Status = t.RosterStatus()
}

func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	c := *t
	if t.TournamentID != nil {
		id := *t.TournamentID
		c.TournamentID = &id
	}
	c.Members = slices.Clone(t.Members)
	c.Requests = slices.Clone(t.Requests)
	return &c
}

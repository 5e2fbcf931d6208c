package models

import "time"

type HallOfFameRecord struct {
	ID             string    `json:"id"`
	TeamID         string    `json:"team_id"`
	TeamName       string    `json:"team"`
	TournamentID   string    `json:"tournament_id"`
	TournamentName string    `json:"tournament"`
	CreatedAt      time.Time `json:"created_at"`
}

package services

import (
	"github.com/Dosada05/esports-arena/models"
)

// Capability is a bit set of what the caller is relative to the entity an operation touches.
type Capability uint8

const (
	CapSelf Capability = 1 << iota
	CapCaptain
	CapOrganizer
	CapAdmin
)

type Operation string

const (
	OpCreateTeam        Operation = "createTeam"
	OpRequestJoin       Operation = "requestJoin"
	OpLeave             Operation = "leave"
	OpReviewRequests    Operation = "reviewRequests"
	OpDecideRequest     Operation = "decideRequest"
	OpKick              Operation = "kick"
	OpCreateTournament  Operation = "createTournament"
	OpSignTeamIn        Operation = "signTeamIn"
	OpStart             Operation = "start"
	OpEnd               Operation = "end"
	OpSetEndDate        Operation = "setEndDate"
	OpSetNextStage      Operation = "setNextStage"
	OpTryResolveMatches Operation = "tryResolveMatches"
	OpResolveMatch      Operation = "resolveMatch"
	OpSendScore         Operation = "sendScore"
)

// policy lists, per operation, the capabilities any one of which grants it.
var policy = map[Operation]Capability{
	OpCreateTeam:        CapSelf,
	OpRequestJoin:       CapSelf,
	OpLeave:             CapSelf,
	OpReviewRequests:    CapCaptain,
	OpDecideRequest:     CapCaptain,
	OpKick:              CapCaptain,
	OpCreateTournament:  CapCaptain | CapAdmin,
	OpSignTeamIn:        CapCaptain,
	OpStart:             CapOrganizer | CapAdmin,
	OpEnd:               CapOrganizer | CapAdmin,
	OpSetEndDate:        CapOrganizer | CapAdmin,
	OpSetNextStage:      CapOrganizer | CapAdmin,
	OpTryResolveMatches: CapOrganizer | CapAdmin,
	OpResolveMatch:      CapCaptain | CapAdmin,
	OpSendScore:         CapCaptain,
}

// capabilities computes what user holds. team is the team the operation concerns (nil if none),
// tournament the tournament it concerns (nil if none).
func capabilities(user *models.User, team *models.Team, tournament *models.Tournament) Capability {
	if user == nil {
		return 0
	}
	caps := CapSelf
	if user.IsAdmin() {
		caps |= CapAdmin
	}
	if team != nil && team.CaptainID == user.ID {
		caps |= CapCaptain
	}
	if tournament != nil && tournament.CreatorID == user.ID {
		caps |= CapOrganizer
	}
	return caps
}

func authorize(op Operation, held Capability) error {
	required, ok := policy[op]
	if !ok {
		return ErrForbidden
	}
	if held&required != 0 {
		return nil
	}
	switch {
	case required&CapCaptain != 0:
		return ErrCaptainsOnly
	case required&CapAdmin != 0:
		return ErrAdminsOnly
	}
	return ErrForbidden
}

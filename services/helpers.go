package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_\- ]{3,35}$`)

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", MissingFieldError(field)
	}
	if !namePattern.MatchString(name) {
		return "", ValidationError(field, field+" must be 3-35 characters of letters, digits, spaces, '_' or '-'")
	}
	return name, nil
}

// handleRepositoryError translates storage sentinels into domain errors. Unknown errors pass through.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrUserUsernameConflict):
		return ErrUsernameTaken
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrEmailTaken
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameTaken
	case errors.Is(err, repositories.ErrTeamMemberConflict):
		return ErrUserAlreadyInTeam
	case errors.Is(err, repositories.ErrTeamUserInvalid):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameTaken
	case errors.Is(err, repositories.ErrEntryConflict):
		return ErrTeamAlreadySigned
	case errors.Is(err, repositories.ErrStageConflict):
		return ErrStageAlreadyAdvanced
	case errors.Is(err, repositories.ErrStageNotFound):
		return ErrStageNotRunning
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	}
	return err
}

// loadActor resolves the caller and, if any, the team they belong to.
func loadActor(ctx context.Context, store repositories.Store, userID string) (*models.User, *models.Team, error) {
	user, err := store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, nil, handleRepositoryError(err)
	}
	if user.TeamID == nil {
		return user, nil, nil
	}
	team, err := store.Teams().GetByID(ctx, *user.TeamID)
	if err != nil {
		return nil, nil, handleRepositoryError(err)
	}
	return user, team, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

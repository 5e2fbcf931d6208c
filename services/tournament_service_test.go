package services

import (
	"fmt"
	"testing"

	"github.com/Dosada05/esports-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournamentValidation(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	admin := env.admin(t, "root")

	tests := []struct {
		name  string
		input CreateTournamentInput
		want  error
	}{
		{"missing name", CreateTournamentInput{NumberOfCompetitors: 4}, ErrMissingField},
		{"missing competitors", CreateTournamentInput{Name: "Cup"}, ErrMissingField},
		{"not a power of two", CreateTournamentInput{Name: "Cup", NumberOfCompetitors: 6}, ErrValidationFailed},
		{"too small", CreateTournamentInput{Name: "Cup", NumberOfCompetitors: 2}, ErrValidationFailed},
		{"too large", CreateTournamentInput{Name: "Cup", NumberOfCompetitors: 32}, ErrValidationFailed},
		{"negative", CreateTournamentInput{Name: "Cup", NumberOfCompetitors: -4}, ErrValidationFailed},
		{"unknown type", CreateTournamentInput{Name: "Cup", NumberOfCompetitors: 4, Type: "round-robin"}, ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tournaments.Create(env.ctx, admin.ID, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	for _, n := range []int{4, 8, 16} {
		tournament, err := env.tournaments.Create(env.ctx, admin.ID, CreateTournamentInput{
			Name:                fmt.Sprintf("Cup %d", n),
			NumberOfCompetitors: n,
		})
		require.NoError(t, err)
		assert.Equal(t, models.TournamentStatusSigning, tournament.Status)
		assert.Equal(t, models.TournamentTypeSingleElimination, tournament.Type)
		assert.Zero(t, tournament.CurrentStage)
	}
}

func TestCreateTournamentAuthorization(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	player := env.user(t, "player")
	captain, _ := env.fullTeam(t, "Lynx", 2)

	_, err := env.tournaments.Create(env.ctx, player.ID, CreateTournamentInput{Name: "Open", NumberOfCompetitors: 4})
	assert.ErrorIs(t, err, ErrCaptainsOnly)

	created, err := env.tournaments.Create(env.ctx, captain.ID, CreateTournamentInput{Name: "Open", NumberOfCompetitors: 4})
	require.NoError(t, err)
	assert.Equal(t, captain.ID, created.CreatorID)

	_, err = env.tournaments.Create(env.ctx, captain.ID, CreateTournamentInput{Name: "Open", NumberOfCompetitors: 8})
	assert.ErrorIs(t, err, ErrTournamentNameTaken)

	all, err := env.tournaments.GetAll(env.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSignTeamIn(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	organizer := env.admin(t, "organizer")
	_, err := env.tournaments.Create(env.ctx, organizer.ID, CreateTournamentInput{Name: "Qualifier", NumberOfCompetitors: 4})
	require.NoError(t, err)

	t.Run("incomplete team", func(t *testing.T) {
		captain := env.user(t, "solo")
		_, err := env.teams.CreateTeam(env.ctx, captain.ID, "Solo")
		require.NoError(t, err)
		_, err = env.tournaments.SignTeamIn(env.ctx, captain.ID, "Qualifier")
		assert.ErrorIs(t, err, ErrTeamNotComplete)
	})

	t.Run("no team", func(t *testing.T) {
		loner := env.user(t, "loner")
		_, err := env.tournaments.SignTeamIn(env.ctx, loner.ID, "Qualifier")
		assert.ErrorIs(t, err, ErrUserHasNoTeam)
	})

	t.Run("member is not a captain", func(t *testing.T) {
		_, team := env.fullTeam(t, "Minks", 2)
		_, err := env.tournaments.SignTeamIn(env.ctx, team.Members[1].UserID, "Qualifier")
		assert.ErrorIs(t, err, ErrCaptainsOnly)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		captain, _ := env.fullTeam(t, "Stoats", 2)
		_, err := env.tournaments.SignTeamIn(env.ctx, captain.ID, "Nowhere")
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	captains := make([]*models.User, 0, 4)
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		captain, team := env.fullTeam(t, name, 2)
		tournament, err := env.tournaments.SignTeamIn(env.ctx, captain.ID, "Qualifier")
		require.NoError(t, err)
		assert.Equal(t, team.ID, tournament.Entries[len(tournament.Entries)-1].TeamID)
		assert.Equal(t, models.TeamStatusSigned, env.team(t, team.ID).Status)
		captains = append(captains, captain)
	}

	_, err = env.tournaments.SignTeamIn(env.ctx, captains[0].ID, "Qualifier")
	assert.ErrorIs(t, err, ErrTeamAlreadySigned)

	extra, _ := env.fullTeam(t, "Echo", 2)
	_, err = env.tournaments.SignTeamIn(env.ctx, extra.ID, "Qualifier")
	assert.ErrorIs(t, err, ErrTournamentFull)

	tournament, err := env.tournaments.GetByName(env.ctx, "Qualifier")
	require.NoError(t, err)
	require.Len(t, tournament.Entries, 4)
	for i, e := range tournament.Entries {
		assert.Equal(t, i, e.Position)
	}
	assert.Len(t, tournament.Teams, 4)
	assert.Empty(t, tournament.Stages)
}

func TestSignTeamInTwice(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	organizer := env.admin(t, "organizer")
	for _, name := range []string{"First Cup", "Second Cup"} {
		_, err := env.tournaments.Create(env.ctx, organizer.ID, CreateTournamentInput{Name: name, NumberOfCompetitors: 4})
		require.NoError(t, err)
	}

	captain, _ := env.fullTeam(t, "Ravens", 2)
	_, err := env.tournaments.SignTeamIn(env.ctx, captain.ID, "First Cup")
	require.NoError(t, err)

	_, err = env.tournaments.SignTeamIn(env.ctx, captain.ID, "First Cup")
	assert.ErrorIs(t, err, ErrTeamAlreadySigned)
	_, err = env.tournaments.SignTeamIn(env.ctx, captain.ID, "Second Cup")
	assert.ErrorIs(t, err, ErrTeamAlreadySigned)
}

func TestStartTournament(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	organizer := env.user(t, "organizer")
	_, orgTeam := env.fullTeam(t, "Organizers", 2)
	orgCaptain := env.captainOf[orgTeam.ID]

	_, err := env.tournaments.Create(env.ctx, orgCaptain.ID, CreateTournamentInput{Name: "Masters", NumberOfCompetitors: 4})
	require.NoError(t, err)

	_, err = env.tournaments.Start(env.ctx, orgCaptain.ID, "Masters")
	assert.ErrorIs(t, err, ErrTournamentNotFull)

	teams := make([]*models.Team, 0, 4)
	for _, name := range []string{"North", "South", "East", "West"} {
		captain, team := env.fullTeam(t, name, 2)
		_, err := env.tournaments.SignTeamIn(env.ctx, captain.ID, "Masters")
		require.NoError(t, err)
		teams = append(teams, team)
	}

	_, err = env.tournaments.Start(env.ctx, organizer.ID, "Masters")
	assert.ErrorIs(t, err, ErrAdminsOnly)

	tournament, err := env.tournaments.Start(env.ctx, orgCaptain.ID, "Masters")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusRunning, tournament.Status)
	assert.Equal(t, 1, tournament.CurrentStage)
	require.Len(t, tournament.Stages, 1)

	matches := tournament.Stages[0].Matches
	require.Len(t, matches, 2)
	assert.Equal(t, teams[0].ID, matches[0].TeamAID)
	assert.Equal(t, teams[1].ID, matches[0].TeamBID)
	assert.Equal(t, teams[2].ID, matches[1].TeamAID)
	assert.Equal(t, teams[3].ID, matches[1].TeamBID)
	for _, m := range matches {
		assert.Equal(t, models.MatchStatusPending, m.Status)
		assert.Nil(t, m.Winner)
	}
	for _, team := range teams {
		assert.Equal(t, models.TeamStatusCompeting, env.team(t, team.ID).Status)
	}
	assert.Equal(t, 1, env.notifier.count(EventTournamentStarted))

	_, err = env.tournaments.Start(env.ctx, orgCaptain.ID, "Masters")
	assert.ErrorIs(t, err, ErrTournamentNotSigning)
}

func TestEndTournament(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	organizer := env.admin(t, "organizer")
	_, teams := env.runningTournament(t, organizer, "Weekly", 4)

	outsider := env.user(t, "outsider")
	_, err := env.tournaments.End(env.ctx, outsider.ID, "Weekly")
	assert.ErrorIs(t, err, ErrAdminsOnly)

	tournament, err := env.tournaments.End(env.ctx, organizer.ID, "Weekly")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusFinished, tournament.Status)
	assert.NotNil(t, tournament.FinishedAt)
	assert.Nil(t, tournament.WinnerTeamID)

	for _, team := range teams {
		released := env.team(t, team.ID)
		assert.Equal(t, models.TeamStatusFull, released.Status)
		assert.Nil(t, released.TournamentID)
	}

	_, err = env.tournaments.End(env.ctx, organizer.ID, "Weekly")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	env.background.Wait()
	records, err := env.hallOfFame.List(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, env.notifier.count(EventTournamentEnded))
}

func TestEndWhileSigningReleasesTeams(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	organizer := env.admin(t, "organizer")
	_, err := env.tournaments.Create(env.ctx, organizer.ID, CreateTournamentInput{Name: "Cancelled", NumberOfCompetitors: 8})
	require.NoError(t, err)

	captain, team := env.fullTeam(t, "Early Birds", 2)
	_, err = env.tournaments.SignTeamIn(env.ctx, captain.ID, "Cancelled")
	require.NoError(t, err)

	_, err = env.tournaments.End(env.ctx, organizer.ID, "Cancelled")
	require.NoError(t, err)

	released := env.team(t, team.ID)
	assert.Equal(t, models.TeamStatusFull, released.Status)
	assert.Nil(t, released.TournamentID)

	_, err = env.teams.Kick(env.ctx, captain.ID, released.Members[1].Username)
	assert.NoError(t, err, "the roster is editable again")
}

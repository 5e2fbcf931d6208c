package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore runs the behaviour every Store implementation shares against a fresh store.
func testStore(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("teams", func(t *testing.T) { testTeams(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("tournaments and stages", func(t *testing.T) { testTournamentsAndStages(t, newStore(t)) })
	t.Run("hall of fame", func(t *testing.T) { testHallOfFame(t, newStore(t)) })
}

func newUser(t *testing.T, store Store, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           utils.NewID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         models.RolePlayer,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func newTeam(captain *models.User, name string) *models.Team {
	return &models.Team{
		ID:        utils.NewID(),
		Name:      name,
		CaptainID: captain.ID,
		Status:    models.TeamStatusFree,
		Capacity:  2,
		Members:   []models.TeamMember{{UserID: captain.ID, Username: captain.Username, JoinedAt: time.Now().UTC()}},
	}
}

func testUsers(t *testing.T, store Store) {
	ctx := context.Background()
	alice := newUser(t, store, "alice")
	assert.False(t, alice.CreatedAt.IsZero())

	got, err := store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Nil(t, got.TeamID)

	dupName := &models.User{ID: utils.NewID(), Username: "alice", Email: "other@example.com", PasswordHash: "x", Role: models.RolePlayer}
	assert.ErrorIs(t, store.Users().Create(ctx, dupName), ErrUserUsernameConflict)

	dupEmail := &models.User{ID: utils.NewID(), Username: "alice2", Email: "alice@example.com", PasswordHash: "x", Role: models.RolePlayer}
	assert.ErrorIs(t, store.Users().Create(ctx, dupEmail), ErrUserEmailConflict)

	_, err = store.Users().GetByID(ctx, utils.NewID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func testTeams(t *testing.T, store Store) {
	ctx := context.Background()
	captain := newUser(t, store, "captain")
	player := newUser(t, store, "player")

	team := newTeam(captain, "Wolves")
	team.Requests = []models.JoinRequest{{UserID: player.ID, CreatedAt: time.Now().UTC()}}
	require.NoError(t, store.Teams().Create(ctx, team))

	got, err := store.Teams().GetByName(ctx, "Wolves")
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)
	require.Len(t, got.Members, 1)
	assert.Equal(t, "captain", got.Members[0].Username)
	require.Len(t, got.Requests, 1)
	assert.Equal(t, "player", got.Requests[0].Username)

	user, err := store.Users().GetByID(ctx, captain.ID)
	require.NoError(t, err)
	require.NotNil(t, user.TeamID)
	assert.Equal(t, team.ID, *user.TeamID)

	byMember, err := store.Teams().GetByMember(ctx, captain.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, byMember.ID)

	assert.ErrorIs(t, store.Teams().Create(ctx, newTeam(player, "Wolves")), ErrTeamNameConflict)

	got.Requests = nil
	got.Members = append(got.Members, models.TeamMember{UserID: player.ID, JoinedAt: time.Now().UTC().Add(time.Second)})
	got.Status = models.TeamStatusFull
	require.NoError(t, store.Teams().Update(ctx, got))

	got, err = store.Teams().GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusFull, got.Status)
	require.Len(t, got.Members, 2)
	assert.Equal(t, captain.ID, got.Members[0].UserID, "members keep join order")
	assert.Equal(t, player.ID, got.Members[1].UserID)
	assert.Empty(t, got.Requests)

	other := newUser(t, store, "other")
	err = store.WithinTx(ctx, func(tx Store) error {
		stolen := newTeam(other, "Thieves")
		stolen.Members = append(stolen.Members, models.TeamMember{UserID: player.ID, JoinedAt: time.Now().UTC()})
		return tx.Teams().Create(ctx, stolen)
	})
	assert.ErrorIs(t, err, ErrTeamMemberConflict)
	_, err = store.Teams().GetByName(ctx, "Thieves")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	require.NoError(t, store.Teams().Delete(ctx, team.ID))
	_, err = store.Teams().GetByID(ctx, team.ID)
	assert.ErrorIs(t, err, ErrTeamNotFound)
	assert.ErrorIs(t, store.Teams().Delete(ctx, team.ID), ErrTeamNotFound)

	user, err = store.Users().GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Nil(t, user.TeamID, "deleting a team frees its members")
}

func testRollback(t *testing.T, store Store) {
	ctx := context.Background()
	captain := newUser(t, store, "captain")
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx Store) error {
		if err := tx.Teams().Create(ctx, newTeam(captain, "Ghosts")); err != nil {
			return err
		}
		if _, err := tx.Teams().GetByName(ctx, "Ghosts"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Teams().GetByName(ctx, "Ghosts")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	require.NoError(t, store.WithinTx(ctx, func(tx Store) error {
		return tx.WithinTx(ctx, func(inner Store) error {
			return inner.Teams().Create(ctx, newTeam(captain, "Ghosts"))
		})
	}))
	_, err = store.Teams().GetByName(ctx, "Ghosts")
	assert.NoError(t, err)
}

func testTournamentsAndStages(t *testing.T, store Store) {
	ctx := context.Background()
	creator := newUser(t, store, "creator")

	tournament := &models.Tournament{
		ID:                  utils.NewID(),
		Name:                "Cup",
		NumberOfCompetitors: 4,
		Type:                models.TournamentTypeSingleElimination,
		Status:              models.TournamentStatusSigning,
		CreatorID:           creator.ID,
	}
	require.NoError(t, store.Tournaments().Create(ctx, tournament))

	dup := *tournament
	dup.ID = utils.NewID()
	assert.ErrorIs(t, store.Tournaments().Create(ctx, &dup), ErrTournamentNameConflict)

	teamIDs := []string{utils.NewID(), utils.NewID(), utils.NewID(), utils.NewID()}
	for i, id := range teamIDs {
		tournament.Entries = append(tournament.Entries, models.TournamentEntry{
			TeamID: id, TeamName: fmt.Sprintf("Team %d", i+1), Position: i, SignedAt: time.Now().UTC(),
		})
	}
	tournament.Status = models.TournamentStatusRunning
	tournament.CurrentStage = 1
	require.NoError(t, store.Tournaments().Update(ctx, tournament))

	stage := &models.Stage{
		ID:           utils.NewID(),
		TournamentID: tournament.ID,
		Number:       1,
		Status:       models.StageStatusRunning,
	}
	for i := 1; i >= 0; i-- {
		stage.Matches = append(stage.Matches, models.Match{
			ID:        utils.NewID(),
			Position:  i,
			TeamAID:   teamIDs[2*i],
			TeamBID:   teamIDs[2*i+1],
			Status:    models.MatchStatusPending,
			UpdatedAt: time.Now().UTC(),
		})
	}
	require.NoError(t, store.Stages().Create(ctx, stage))

	again := &models.Stage{ID: utils.NewID(), TournamentID: tournament.ID, Number: 1, Status: models.StageStatusRunning}
	assert.ErrorIs(t, store.Stages().Create(ctx, again), ErrStageConflict)

	got, err := store.Stages().Get(ctx, tournament.ID, 1)
	require.NoError(t, err)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, 0, got.Matches[0].Position, "matches come back in bracket order")
	assert.Equal(t, teamIDs[0], got.Matches[0].TeamAID)

	m := &got.Matches[0]
	m.SetReport(0, 1)
	m.SetReport(1, 1)
	winner, by := 1, models.ResolvedByCaptains
	m.Winner, m.ResolvedBy = &winner, &by
	m.Status = models.MatchStatusResolved
	require.NoError(t, store.Stages().Update(ctx, got))

	tournament.MarkEliminated(teamIDs[0], 1)
	require.NoError(t, store.Tournaments().Update(ctx, tournament))

	got, err = store.Stages().Get(ctx, tournament.ID, 1)
	require.NoError(t, err)
	winnerID, ok := got.Matches[0].WinnerTeamID()
	require.True(t, ok)
	assert.Equal(t, teamIDs[1], winnerID)
	assert.Equal(t, models.ResolvedByCaptains, *got.Matches[0].ResolvedBy)
	assert.Equal(t, models.MatchStatusPending, got.Matches[1].Status)

	stored, err := store.Tournaments().GetByName(ctx, "Cup")
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusRunning, stored.Status)
	require.Len(t, stored.Entries, 4)
	require.NotNil(t, stored.Entries[0].EliminatedInStage)
	assert.Equal(t, 1, *stored.Entries[0].EliminatedInStage)
	assert.Nil(t, stored.Entries[1].EliminatedInStage)

	stages, err := store.Stages().ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, stages, 1)

	_, err = store.Stages().Get(ctx, tournament.ID, 2)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func testHallOfFame(t *testing.T, store Store) {
	ctx := context.Background()

	records, err := store.HallOfFame().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, name := range []string{"Spring Cup", "Summer Cup"} {
		require.NoError(t, store.HallOfFame().Create(ctx, &models.HallOfFameRecord{
			ID:             utils.NewID(),
			TeamID:         utils.NewID(),
			TeamName:       "Champions",
			TournamentID:   utils.NewID(),
			TournamentName: name,
		}))
		time.Sleep(5 * time.Millisecond)
	}

	records, err = store.HallOfFame().List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Summer Cup", records[0].TournamentName, "newest first")
}

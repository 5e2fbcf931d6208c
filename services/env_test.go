package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/esports-arena/locks"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/storage"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	Tournament string
	Type       string
	Payload    interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(tournament, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Tournament: tournament, Type: eventType, Payload: payload})
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Type == eventType {
			c++
		}
	}
	return c
}

type testEnv struct {
	ctx        context.Context
	store      repositories.Store
	notifier   *recordingNotifier
	background *BackgroundTasks

	teams       TeamService
	tournaments TournamentService
	bracket     BracketService
	stages      StageService
	hallOfFame  HallOfFameService

	// captainOf maps a team id to its captain.
	captainOf map[string]*models.User
	seq       int
}

const testLockWait = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires every service over one memory store. Finished brackets are archived to uploader when it is not nil.
func newTestEnv(t *testing.T, capacity int, uploader storage.FileUploader) *testEnv {
	t.Helper()

	store := repositories.NewMemoryStore()
	locker := locks.NewKeyedMutex()
	logger := discardLogger()
	notifier := &recordingNotifier{}
	background := NewBackgroundTasks(5*time.Second, logger)
	hallOfFame := NewHallOfFameService(store, logger)
	tournaments := NewTournamentService(store, locker, testLockWait, notifier, logger)

	var archiver BracketArchiver
	if uploader != nil {
		archiver = NewBracketArchiver(tournaments, uploader, logger)
	}

	return &testEnv{
		ctx:         context.Background(),
		store:       store,
		notifier:    notifier,
		background:  background,
		teams:       NewTeamService(store, locker, testLockWait, capacity, logger),
		tournaments: tournaments,
		bracket:     NewBracketService(store, locker, testLockWait, notifier, logger),
		stages:      NewStageService(store, locker, testLockWait, notifier, hallOfFame, archiver, background, logger),
		hallOfFame:  hallOfFame,
		captainOf:   make(map[string]*models.User),
	}
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           utils.NewID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         models.RolePlayer,
	}
	require.NoError(t, e.store.Users().Create(e.ctx, u))
	return u
}

func (e *testEnv) admin(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           utils.NewID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         models.RoleAdmin,
	}
	require.NoError(t, e.store.Users().Create(e.ctx, u))
	return u
}

// fullTeam creates a team named name and fills it to capacity through the join workflow.
func (e *testEnv) fullTeam(t *testing.T, name string, capacity int) (*models.User, *models.Team) {
	t.Helper()
	captain := e.user(t, name+"_cpt")
	team, err := e.teams.CreateTeam(e.ctx, captain.ID, name)
	require.NoError(t, err)

	for i := 1; i < capacity; i++ {
		e.seq++
		member := e.user(t, fmt.Sprintf("%s_m%d", name, e.seq))
		require.NoError(t, e.teams.RequestJoin(e.ctx, member.ID, name))
		team, err = e.teams.DecideRequest(e.ctx, captain.ID, member.Username, true)
		require.NoError(t, err)
	}
	require.Equal(t, models.TeamStatusFull, team.Status)

	e.captainOf[team.ID] = captain
	return captain, team
}

// runningTournament creates a tournament organized by organizer, signs in n full teams and starts it.
func (e *testEnv) runningTournament(t *testing.T, organizer *models.User, name string, n int) (*models.Tournament, []*models.Team) {
	t.Helper()
	_, err := e.tournaments.Create(e.ctx, organizer.ID, CreateTournamentInput{Name: name, NumberOfCompetitors: n})
	require.NoError(t, err)

	teams := make([]*models.Team, 0, n)
	for i := 0; i < n; i++ {
		captain, team := e.fullTeam(t, fmt.Sprintf("%s T%d", name, i+1), 2)
		_, err := e.tournaments.SignTeamIn(e.ctx, captain.ID, name)
		require.NoError(t, err)
		teams = append(teams, team)
	}

	tournament, err := e.tournaments.Start(e.ctx, organizer.ID, name)
	require.NoError(t, err)
	return tournament, teams
}

func (e *testEnv) currentStage(t *testing.T, tournamentName string) *models.Stage {
	t.Helper()
	tournament, err := e.store.Tournaments().GetByName(e.ctx, tournamentName)
	require.NoError(t, err)
	stage, err := e.store.Stages().Get(e.ctx, tournament.ID, tournament.CurrentStage)
	require.NoError(t, err)
	return stage
}

// win has both captains of m agree that the team in winnerSlot won.
func (e *testEnv) win(t *testing.T, tournamentName string, m models.Match, winnerSlot int) {
	t.Helper()
	_, err := e.bracket.ResolveMatch(e.ctx, e.captainOf[m.TeamAID].ID, tournamentName, m.ID, winnerSlot)
	require.NoError(t, err)
	resolved, err := e.bracket.ResolveMatch(e.ctx, e.captainOf[m.TeamBID].ID, tournamentName, m.ID, winnerSlot)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusResolved, resolved.Status)
}

func (e *testEnv) team(t *testing.T, id string) *models.Team {
	t.Helper()
	team, err := e.store.Teams().GetByID(e.ctx, id)
	require.NoError(t, err)
	return team
}

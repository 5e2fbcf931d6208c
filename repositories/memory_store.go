package repositories

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Dosada05/esports-arena/models"
)

type memoryState struct {
	users       map[string]*models.User
	teams       map[string]*models.Team
	tournaments map[string]*models.Tournament
	stages      map[string]*models.Stage
	hallOfFame  []models.HallOfFameRecord
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:       make(map[string]*models.User),
		teams:       make(map[string]*models.Team),
		tournaments: make(map[string]*models.Tournament),
		stages:      make(map[string]*models.Stage),
	}
}

func (st *memoryState) clone() *memoryState {
	c := newMemoryState()
	for id, u := range st.users {
		user := *u
		c.users[id] = &user
	}
	for id, t := range st.teams {
		c.teams[id] = t.Clone()
	}
	for id, t := range st.tournaments {
		c.tournaments[id] = t.Clone()
	}
	for id, s := range st.stages {
		c.stages[id] = s.Clone()
	}
	c.hallOfFame = slices.Clone(st.hallOfFame)
	return c
}

type memoryDB struct {
	mu    sync.RWMutex
	state *memoryState
}

// memoryStore keeps all entities in process memory. Reads return copies. A transaction works on a
// private copy of the state under the write lock and replaces the shared state only when it succeeds.
type memoryStore struct {
	db *memoryDB
	tx *memoryState
}

func NewMemoryStore() Store {
	return &memoryStore{db: &memoryDB{state: newMemoryState()}}
}

func (s *memoryStore) Users() UserRepository { return memoryUserRepository{s} }
func (s *memoryStore) Teams() TeamRepository { return memoryTeamRepository{s} }
func (s *memoryStore) Tournaments() TournamentRepository { return memoryTournamentRepository{s} }
func (s *memoryStore) Stages() StageRepository { return memoryStageRepository{s} }
func (s *memoryStore) HallOfFame() HallOfFameRepository { return memoryHallOfFameRepository{s} }

func (s *memoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.state.clone()
	if err := fn(&memoryStore{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.state = work
	return nil
}

func (s *memoryStore) read(fn func(st *memoryState) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.state)
}

func (s *memoryStore) write(fn func(st *memoryState) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.state)
}

func now() time.Time {
	return time.Now().UTC()
}

type memoryUserRepository struct{ s *memoryStore }

func (r memoryUserRepository) Create(_ context.Context, user *models.User) error {
	return r.s.write(func(st *memoryState) error {
		for _, u := range st.users {
			if u.Username == user.Username {
				return ErrUserUsernameConflict
			}
			if u.Email == user.Email {
				return ErrUserEmailConflict
			}
		}
		user.CreatedAt = now()
		stored := *user
		stored.TeamID, stored.Team = nil, nil
		st.users[user.ID] = &stored
		return nil
	})
}

func (r memoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.s.read(func(st *memoryState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrUserNotFound
		}
		out = st.userView(u)
		return nil
	})
	return out, err
}

func (r memoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	var out *models.User
	err := r.s.read(func(st *memoryState) error {
		for _, u := range st.users {
			if u.Username == username {
				out = st.userView(u)
				return nil
			}
		}
		return ErrUserNotFound
	})
	return out, err
}

func (st *memoryState) userView(u *models.User) *models.User {
	user := *u
	for _, t := range st.teams {
		if t.IsMember(u.ID) {
			id := t.ID
			user.TeamID = &id
			break
		}
	}
	return &user
}

type memoryTeamRepository struct{ s *memoryStore }

func (st *memoryState) teamView(t *models.Team) *models.Team {
	team := t.Clone()
	for i, m := range team.Members {
		if u, ok := st.users[m.UserID]; ok {
			team.Members[i].Username = u.Username
		}
	}
	for i, req := range team.Requests {
		if u, ok := st.users[req.UserID]; ok {
			team.Requests[i].Username = u.Username
		}
	}
	if team.Members == nil {
		team.Members = []models.TeamMember{}
	}
	return team
}

func (st *memoryState) checkTeam(team *models.Team) error {
	for _, other := range st.teams {
		if other.ID == team.ID {
			continue
		}
		if other.Name == team.Name {
			return ErrTeamNameConflict
		}
		for _, m := range team.Members {
			if other.IsMember(m.UserID) {
				return ErrTeamMemberConflict
			}
		}
	}
	for _, m := range team.Members {
		if _, ok := st.users[m.UserID]; !ok {
			return ErrTeamUserInvalid
		}
	}
	for _, req := range team.Requests {
		if _, ok := st.users[req.UserID]; !ok {
			return ErrTeamUserInvalid
		}
	}
	return nil
}

func (r memoryTeamRepository) Create(_ context.Context, team *models.Team) error {
	return r.s.write(func(st *memoryState) error {
		if _, exists := st.teams[team.ID]; exists {
			return ErrTeamNameConflict
		}
		if err := st.checkTeam(team); err != nil {
			return err
		}
		team.CreatedAt = now()
		st.teams[team.ID] = team.Clone()
		return nil
	})
}

func (r memoryTeamRepository) GetByID(_ context.Context, id string) (*models.Team, error) {
	return r.find(func(t *models.Team) bool { return t.ID == id })
}

func (r memoryTeamRepository) GetByName(_ context.Context, name string) (*models.Team, error) {
	return r.find(func(t *models.Team) bool { return t.Name == name })
}

func (r memoryTeamRepository) GetByMember(_ context.Context, userID string) (*models.Team, error) {
	return r.find(func(t *models.Team) bool { return t.IsMember(userID) })
}

func (r memoryTeamRepository) find(match func(t *models.Team) bool) (*models.Team, error) {
	var out *models.Team
	err := r.s.read(func(st *memoryState) error {
		for _, t := range st.teams {
			if match(t) {
				out = st.teamView(t)
				return nil
			}
		}
		return ErrTeamNotFound
	})
	return out, err
}

func (r memoryTeamRepository) List(_ context.Context) ([]models.Team, error) {
	var out []models.Team
	err := r.s.read(func(st *memoryState) error {
		for _, t := range st.teams {
			out = append(out, *st.teamView(t))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Team) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Name, b.Name))
	})
	return out, err
}

func (r memoryTeamRepository) Update(_ context.Context, team *models.Team) error {
	return r.s.write(func(st *memoryState) error {
		existing, ok := st.teams[team.ID]
		if !ok {
			return ErrTeamNotFound
		}
		if err := st.checkTeam(team); err != nil {
			return err
		}
		stored := team.Clone()
		stored.CreatedAt = existing.CreatedAt
		st.teams[team.ID] = stored
		return nil
	})
}

func (r memoryTeamRepository) Delete(_ context.Context, id string) error {
	return r.s.write(func(st *memoryState) error {
		if _, ok := st.teams[id]; !ok {
			return ErrTeamNotFound
		}
		delete(st.teams, id)
		return nil
	})
}

func (r memoryTeamRepository) DeleteRequestsByUser(_ context.Context, userID string) error {
	return r.s.write(func(st *memoryState) error {
		for _, t := range st.teams {
			t.RemoveRequest(userID)
		}
		return nil
	})
}

type memoryTournamentRepository struct{ s *memoryStore }

func checkEntries(entries []models.TournamentEntry) error {
	teams := make(map[string]struct{}, len(entries))
	positions := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := teams[e.TeamID]; dup {
			return ErrEntryConflict
		}
		if _, dup := positions[e.Position]; dup {
			return ErrEntryConflict
		}
		teams[e.TeamID] = struct{}{}
		positions[e.Position] = struct{}{}
	}
	return nil
}

func (r memoryTournamentRepository) Create(_ context.Context, t *models.Tournament) error {
	return r.s.write(func(st *memoryState) error {
		for _, other := range st.tournaments {
			if other.Name == t.Name || other.ID == t.ID {
				return ErrTournamentNameConflict
			}
		}
		if err := checkEntries(t.Entries); err != nil {
			return err
		}
		t.CreatedAt = now()
		st.tournaments[t.ID] = t.Clone()
		return nil
	})
}

func (r memoryTournamentRepository) GetByID(_ context.Context, id string) (*models.Tournament, error) {
	return r.find(func(t *models.Tournament) bool { return t.ID == id })
}

func (r memoryTournamentRepository) GetByName(_ context.Context, name string) (*models.Tournament, error) {
	return r.find(func(t *models.Tournament) bool { return t.Name == name })
}

func (r memoryTournamentRepository) find(match func(t *models.Tournament) bool) (*models.Tournament, error) {
	var out *models.Tournament
	err := r.s.read(func(st *memoryState) error {
		for _, t := range st.tournaments {
			if match(t) {
				out = tournamentView(t)
				return nil
			}
		}
		return ErrTournamentNotFound
	})
	return out, err
}

func tournamentView(t *models.Tournament) *models.Tournament {
	out := t.Clone()
	slices.SortFunc(out.Entries, func(a, b models.TournamentEntry) int { return a.Position - b.Position })
	if out.Entries == nil {
		out.Entries = []models.TournamentEntry{}
	}
	return out
}

func (r memoryTournamentRepository) List(_ context.Context) ([]models.Tournament, error) {
	var out []models.Tournament
	err := r.s.read(func(st *memoryState) error {
		for _, t := range st.tournaments {
			out = append(out, *tournamentView(t))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Tournament) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.Name, b.Name))
	})
	return out, err
}

func (r memoryTournamentRepository) Update(_ context.Context, t *models.Tournament) error {
	return r.s.write(func(st *memoryState) error {
		existing, ok := st.tournaments[t.ID]
		if !ok {
			return ErrTournamentNotFound
		}
		if err := checkEntries(t.Entries); err != nil {
			return err
		}
		stored := t.Clone()
		stored.Name = existing.Name
		stored.NumberOfCompetitors = existing.NumberOfCompetitors
		stored.Type = existing.Type
		stored.CreatorID = existing.CreatorID
		stored.CreatedAt = existing.CreatedAt
		st.tournaments[t.ID] = stored
		return nil
	})
}

type memoryStageRepository struct{ s *memoryStore }

func (r memoryStageRepository) Create(_ context.Context, stage *models.Stage) error {
	return r.s.write(func(st *memoryState) error {
		for _, other := range st.stages {
			if other.TournamentID == stage.TournamentID && other.Number == stage.Number {
				return ErrStageConflict
			}
		}
		stage.CreatedAt = now()
		for i := range stage.Matches {
			stage.Matches[i].StageID = stage.ID
			stage.Matches[i].TournamentID = stage.TournamentID
		}
		st.stages[stage.ID] = stage.Clone()
		return nil
	})
}

func (r memoryStageRepository) Get(_ context.Context, tournamentID string, number int) (*models.Stage, error) {
	var out *models.Stage
	err := r.s.read(func(st *memoryState) error {
		for _, s := range st.stages {
			if s.TournamentID == tournamentID && s.Number == number {
				out = stageView(s)
				return nil
			}
		}
		return ErrStageNotFound
	})
	return out, err
}

func stageView(s *models.Stage) *models.Stage {
	out := s.Clone()
	slices.SortFunc(out.Matches, func(a, b models.Match) int { return a.Position - b.Position })
	return out
}

func (r memoryStageRepository) ListByTournament(_ context.Context, tournamentID string) ([]models.Stage, error) {
	var out []models.Stage
	err := r.s.read(func(st *memoryState) error {
		for _, s := range st.stages {
			if s.TournamentID == tournamentID {
				out = append(out, *stageView(s))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Stage) int { return a.Number - b.Number })
	return out, err
}

func (r memoryStageRepository) Update(_ context.Context, stage *models.Stage) error {
	return r.s.write(func(st *memoryState) error {
		existing, ok := st.stages[stage.ID]
		if !ok {
			return ErrStageNotFound
		}
		for _, m := range stage.Matches {
			if _, ok := existing.MatchByID(m.ID); !ok {
				return ErrMatchNotFound
			}
		}
		stored := stage.Clone()
		stored.TournamentID = existing.TournamentID
		stored.Number = existing.Number
		stored.CreatedAt = existing.CreatedAt
		st.stages[stage.ID] = stored
		return nil
	})
}

type memoryHallOfFameRepository struct{ s *memoryStore }

func (r memoryHallOfFameRepository) Create(_ context.Context, rec *models.HallOfFameRecord) error {
	return r.s.write(func(st *memoryState) error {
		rec.CreatedAt = now()
		st.hallOfFame = append(st.hallOfFame, *rec)
		return nil
	})
}

func (r memoryHallOfFameRepository) List(_ context.Context) ([]models.HallOfFameRecord, error) {
	var out []models.HallOfFameRecord
	err := r.s.read(func(st *memoryState) error {
		out = slices.Clone(st.hallOfFame)
		return nil
	})
	slices.Reverse(out)
	if out == nil {
		out = []models.HallOfFameRecord{}
	}
	return out, err
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Dosada05/esports-arena/brackets"
	"github.com/Dosada05/esports-arena/locks"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/utils"
	"golang.org/x/sync/errgroup"
)

var allowedCompetitors = []int{4, 8, 16}

type CreateTournamentInput struct {
	Name                string `json:"name"`
	NumberOfCompetitors int    `json:"numberOfCompetitors"`
	Type                string `json:"type"`
}

type TournamentService interface {
	Create(ctx context.Context, creatorID string, input CreateTournamentInput) (*models.Tournament, error)
	GetAll(ctx context.Context) ([]models.Tournament, error)
	GetByName(ctx context.Context, name string) (*models.Tournament, error)
	SignTeamIn(ctx context.Context, captainID, tournamentName string) (*models.Tournament, error)
	Start(ctx context.Context, requesterID, tournamentName string) (*models.Tournament, error)
	End(ctx context.Context, requesterID, tournamentName string) (*models.Tournament, error)
}

type tournamentService struct {
	store    repositories.Store
	guard    guard
	notifier BracketNotifier
	logger   *slog.Logger
}

func NewTournamentService(store repositories.Store, locker locks.Locker, lockWait time.Duration, notifier BracketNotifier, logger *slog.Logger) TournamentService {
	return &tournamentService{
		store:    store,
		guard:    guard{locker: locker, wait: lockWait},
		notifier: notifierOrNoop(notifier),
		logger:   logger,
	}
}

func validateTournamentInput(input *CreateTournamentInput) error {
	name, err := validateName("name", input.Name)
	if err != nil {
		return err
	}
	input.Name = name

	if input.NumberOfCompetitors == 0 {
		return MissingFieldError("numberOfCompetitors")
	}
	if !brackets.IsPowerOfTwo(input.NumberOfCompetitors) || !slices.Contains(allowedCompetitors, input.NumberOfCompetitors) {
		return ValidationError("numberOfCompetitors", "numberOfCompetitors must be 4, 8 or 16")
	}

	input.Type = strings.TrimSpace(input.Type)
	if input.Type == "" {
		input.Type = models.TournamentTypeSingleElimination
	}
	if !brackets.SupportedFormat(input.Type) {
		return ValidationError("type", "unsupported tournament type "+input.Type)
	}
	return nil
}

func (s *tournamentService) Create(ctx context.Context, creatorID string, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(&input); err != nil {
		return nil, err
	}

	unlock, err := s.guard.lock(ctx, locks.TournamentKey(input.Name))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var t *models.Tournament
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, team, err := loadActor(ctx, tx, creatorID)
		if err != nil {
			return err
		}
		if err := authorize(OpCreateTournament, capabilities(user, team, nil)); err != nil {
			return err
		}
		if _, err := tx.Tournaments().GetByName(ctx, input.Name); err == nil {
			return ErrTournamentNameTaken
		}

		t = &models.Tournament{
			ID:                  utils.NewID(),
			Name:                input.Name,
			NumberOfCompetitors: input.NumberOfCompetitors,
			Type:                input.Type,
			Status:              models.TournamentStatusSigning,
			CreatorID:           user.ID,
			Entries:             []models.TournamentEntry{},
		}
		return handleRepositoryError(tx.Tournaments().Create(ctx, t))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.String("tournament", t.Name),
		slog.Int("competitors", t.NumberOfCompetitors),
		slog.String("creator_id", creatorID))
	return t, nil
}

func (s *tournamentService) GetAll(ctx context.Context) ([]models.Tournament, error) {
	tournaments, err := s.store.Tournaments().List(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if tournaments == nil {
		tournaments = []models.Tournament{}
	}
	return tournaments, nil
}

// GetByName returns the tournament with its entered teams and every stage played so far.
func (s *tournamentService) GetByName(ctx context.Context, name string) (*models.Tournament, error) {
	t, err := s.store.Tournaments().GetByName(ctx, name)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	teams := make([]*models.Team, len(t.Entries))
	for i, e := range t.Entries {
		g.Go(func() error {
			team, err := s.store.Teams().GetByID(gCtx, e.TeamID)
			if errors.Is(err, repositories.ErrTeamNotFound) {
				// Dissolved after its elimination; the entry keeps the name.
				return nil
			}
			if err != nil {
				return err
			}
			teams[i] = team
			return nil
		})
	}

	g.Go(func() error {
		stages, err := s.store.Stages().ListByTournament(gCtx, t.ID)
		if err != nil {
			return err
		}
		t.Stages = stages
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, handleRepositoryError(err)
	}

	t.Teams = make([]models.Team, 0, len(teams))
	for _, team := range teams {
		if team != nil {
			t.Teams = append(t.Teams, *team)
		}
	}
	if t.Stages == nil {
		t.Stages = []models.Stage{}
	}
	return t, nil
}

func (s *tournamentService) SignTeamIn(ctx context.Context, captainID, tournamentName string) (*models.Tournament, error) {
	tournamentName = strings.TrimSpace(tournamentName)
	if tournamentName == "" {
		return nil, MissingFieldError("name")
	}

	_, team, err := loadActor(ctx, s.store, captainID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrUserHasNoTeam
	}

	unlock, err := s.guard.lockTournamentAndTeam(ctx, tournamentName, team.Name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var t *models.Tournament
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, current, err := loadActor(ctx, tx, captainID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrUserHasNoTeam
		}
		if current.ID != team.ID {
			return ErrConcurrentUpdate
		}
		if err := authorize(OpSignTeamIn, capabilities(user, current, nil)); err != nil {
			return err
		}

		t, err = tx.Tournaments().GetByName(ctx, tournamentName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.TournamentStatusSigning {
			return ErrTournamentNotSigning
		}
		if t.HasTeam(current.ID) || current.TournamentID != nil || !current.Editable() {
			return ErrTeamAlreadySigned
		}
		if current.Status != models.TeamStatusFull {
			return ErrTeamNotComplete
		}
		if t.IsFull() {
			return ErrTournamentFull
		}

		t.Entries = append(t.Entries, models.TournamentEntry{
			TeamID:   current.ID,
			TeamName: current.Name,
			Position: len(t.Entries),
			SignedAt: nowUTC(),
		})
		if err := tx.Tournaments().Update(ctx, t); err != nil {
			return handleRepositoryError(err)
		}

		tournamentID := t.ID
		current.TournamentID = &tournamentID
		current.Status = models.TeamStatusSigned
		return handleRepositoryError(tx.Teams().Update(ctx, current))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team signed in",
		slog.String("tournament", t.Name),
		slog.String("team", team.Name),
		slog.Int("entered", len(t.Entries)))
	return t, nil
}

func (s *tournamentService) Start(ctx context.Context, requesterID, tournamentName string) (*models.Tournament, error) {
	unlock, err := s.guard.lockTournament(ctx, s.store, tournamentName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		t     *models.Tournament
		stage *models.Stage
	)
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByID(ctx, requesterID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err = tx.Tournaments().GetByName(ctx, tournamentName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := authorize(OpStart, capabilities(user, nil, t)); err != nil {
			return err
		}
		if t.Status != models.TournamentStatusSigning {
			return ErrTournamentNotSigning
		}
		if !t.IsFull() {
			return ErrTournamentNotFull
		}
		if err := applyTransition(t, EventStart); err != nil {
			return err
		}

		stage, err = buildStage(ctx, tx, t, t.TeamIDs(), t.CurrentStage)
		if err != nil {
			return err
		}
		if err := tx.Tournaments().Update(ctx, t); err != nil {
			return handleRepositoryError(err)
		}

		for _, id := range t.TeamIDs() {
			team, err := tx.Teams().GetByID(ctx, id)
			if err != nil {
				return handleRepositoryError(err)
			}
			team.Status = models.TeamStatusCompeting
			if err := tx.Teams().Update(ctx, team); err != nil {
				return handleRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started",
		slog.String("tournament", t.Name),
		slog.Int("matches", len(stage.Matches)),
		slog.Int("stages", t.StageCount()))
	s.notifier.Publish(t.Name, EventTournamentStarted, stage)

	t.Stages = []models.Stage{*stage}
	return t, nil
}

// End force-closes a tournament. Entered teams are released and no champion is recorded.
func (s *tournamentService) End(ctx context.Context, requesterID, tournamentName string) (*models.Tournament, error) {
	unlock, err := s.guard.lockTournament(ctx, s.store, tournamentName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var t *models.Tournament
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByID(ctx, requesterID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err = tx.Tournaments().GetByName(ctx, tournamentName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := authorize(OpEnd, capabilities(user, nil, t)); err != nil {
			return err
		}
		if err := applyTransition(t, EventEnd); err != nil {
			return err
		}
		finishedAt := nowUTC()
		t.FinishedAt = &finishedAt
		if err := tx.Tournaments().Update(ctx, t); err != nil {
			return handleRepositoryError(err)
		}

		for _, id := range t.TeamIDs() {
			team, err := tx.Teams().GetByID(ctx, id)
			if errors.Is(err, repositories.ErrTeamNotFound) {
				continue
			}
			if err != nil {
				return handleRepositoryError(err)
			}
			if team.TournamentID == nil || *team.TournamentID != t.ID {
				continue
			}
			team.ReleaseFromTournament()
			if err := tx.Teams().Update(ctx, team); err != nil {
				return handleRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament ended", slog.String("tournament", t.Name), slog.String("requester_id", requesterID))
	s.notifier.Publish(t.Name, EventTournamentEnded, t)
	return t, nil
}

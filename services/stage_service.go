package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-arena/locks"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
)

// StageAdvance is the result of closing the current stage: either the next stage or the champion.
type StageAdvance struct {
	Tournament *models.Tournament `json:"tournament"`
	Stage      *models.Stage      `json:"stage,omitempty"`
	Finished   bool               `json:"finished"`
	ChampionID string             `json:"champion_id,omitempty"`
}

// StageService drives the tournament from one stage to the next and closes it after the final.
type StageService interface {
	SetEndDate(ctx context.Context, requesterID, tournamentName string, date time.Time) (*models.Stage, error)
	SetNextStage(ctx context.Context, requesterID, tournamentName string) (*StageAdvance, error)
}

type stageService struct {
	store      repositories.Store
	guard      guard
	notifier   BracketNotifier
	hallOfFame HallOfFameService
	archiver   BracketArchiver
	background *BackgroundTasks
	logger     *slog.Logger
}

// NewStageService wires the controller. archiver may be nil when bracket archiving is disabled.
func NewStageService(
	store repositories.Store,
	locker locks.Locker,
	lockWait time.Duration,
	notifier BracketNotifier,
	hallOfFame HallOfFameService,
	archiver BracketArchiver,
	background *BackgroundTasks,
	logger *slog.Logger,
) StageService {
	return &stageService{
		store:      store,
		guard:      guard{locker: locker, wait: lockWait},
		notifier:   notifierOrNoop(notifier),
		hallOfFame: hallOfFame,
		archiver:   archiver,
		background: background,
		logger:     logger,
	}
}

func (s *stageService) SetEndDate(ctx context.Context, requesterID, tournamentName string, date time.Time) (*models.Stage, error) {
	if date.IsZero() {
		return nil, MissingFieldError("date")
	}

	unlock, err := s.guard.lock(ctx, locks.TournamentKey(tournamentName))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var stage *models.Stage
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByID(ctx, requesterID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err := tx.Tournaments().GetByName(ctx, tournamentName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := authorize(OpSetEndDate, capabilities(user, nil, t)); err != nil {
			return err
		}
		if t.Status != models.TournamentStatusRunning {
			return ErrTournamentNotRunning
		}

		stage, err = tx.Stages().Get(ctx, t.ID, t.CurrentStage)
		if err != nil {
			return handleRepositoryError(err)
		}
		end := date.UTC()
		stage.EndDate = &end
		return handleRepositoryError(tx.Stages().Update(ctx, stage))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stage end date set",
		slog.String("tournament", tournamentName),
		slog.Int("stage", stage.Number),
		slog.Time("end_date", *stage.EndDate))
	return stage, nil
}

// SetNextStage closes the current stage. The winners of its matches, in match order, form the
// next stage; after the final the tournament finishes with the last winner as champion.
func (s *stageService) SetNextStage(ctx context.Context, requesterID, tournamentName string) (*StageAdvance, error) {
	unlock, err := s.guard.lockTournament(ctx, s.store, tournamentName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		adv      *StageAdvance
		closed   *StageResolution
		champion *models.Team
	)
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByID(ctx, requesterID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err := tx.Tournaments().GetByName(ctx, tournamentName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := authorize(OpSetNextStage, capabilities(user, nil, t)); err != nil {
			return err
		}
		if t.Status == models.TournamentStatusFinished && t.WinnerTeamID != nil {
			return ErrStageAlreadyAdvanced
		}
		if t.Status != models.TournamentStatusRunning {
			return ErrTournamentNotRunning
		}

		closed, err = sweep(ctx, tx, t)
		if err != nil {
			return err
		}
		if !closed.Resolved {
			// A fresh stage nobody has reported on means the previous one was just advanced.
			if closed.stage.Number > 1 && !closed.stage.HasReports() {
				return ErrStageAlreadyAdvanced
			}
			return ErrStageNotResolved
		}

		winners, ok := closed.stage.Winners()
		if !ok {
			return ErrStageNotResolved
		}

		if t.IsLastStage() {
			if err := applyTransition(t, EventFinish); err != nil {
				return err
			}
			championID := winners[0]
			finishedAt := nowUTC()
			t.WinnerTeamID = &championID
			t.FinishedAt = &finishedAt
			if err := tx.Tournaments().Update(ctx, t); err != nil {
				return handleRepositoryError(err)
			}

			champion, err = tx.Teams().GetByID(ctx, championID)
			if err != nil {
				return handleRepositoryError(err)
			}
			champion.ReleaseFromTournament()
			if err := tx.Teams().Update(ctx, champion); err != nil {
				return handleRepositoryError(err)
			}

			adv = &StageAdvance{Tournament: t, Finished: true, ChampionID: championID}
			return nil
		}

		if err := applyTransition(t, EventAdvance); err != nil {
			return err
		}
		next, err := buildStage(ctx, tx, t, winners, t.CurrentStage)
		if err != nil {
			return err
		}
		if err := tx.Tournaments().Update(ctx, t); err != nil {
			return handleRepositoryError(err)
		}
		adv = &StageAdvance{Tournament: t, Stage: next}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if closed.transitioned {
		s.notifier.Publish(tournamentName, EventStageResolved, closed)
	}
	if !adv.Finished {
		s.logger.Info("stage advanced",
			slog.String("tournament", tournamentName),
			slog.Int("stage", adv.Stage.Number),
			slog.Int("matches", len(adv.Stage.Matches)))
		s.notifier.Publish(tournamentName, EventStageAdvanced, adv.Stage)
		return adv, nil
	}

	s.logger.Info("tournament finished",
		slog.String("tournament", tournamentName),
		slog.String("champion", champion.Name))
	s.notifier.Publish(tournamentName, EventTournamentFinished, adv)
	s.closeOut(ctx, adv.Tournament, champion)
	return adv, nil
}

// closeOut records the champion and archives the bracket without holding up the caller.
func (s *stageService) closeOut(ctx context.Context, t *models.Tournament, champion *models.Team) {
	tournament := t.Clone()
	team := champion.Clone()

	s.background.Go(ctx, "hall_of_fame", func(ctx context.Context) error {
		_, err := s.hallOfFame.Record(ctx, team, tournament)
		return err
	})
	if s.archiver != nil {
		s.background.Go(ctx, "bracket_archive", func(ctx context.Context) error {
			_, err := s.archiver.Archive(ctx, tournament.Name)
			return err
		})
	}
}

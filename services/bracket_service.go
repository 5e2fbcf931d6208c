package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-arena/brackets"
	"github.com/Dosada05/esports-arena/locks"
	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/utils"
)

// StageResolution is the outcome of a sweep over the current stage.
type StageResolution struct {
	Tournament string         `json:"tournament"`
	Stage      int            `json:"stage"`
	Resolved   bool           `json:"resolved"`
	Unresolved []models.Match `json:"unresolved"`

	stage        *models.Stage
	transitioned bool
}

// BracketService resolves matches of the running stage and detects stage completion.
// It never advances the tournament; that is StageService's job.
type BracketService interface {
	ResolveMatch(ctx context.Context, requesterID, tournamentName, matchID string, winnerSlot int) (*models.Match, error)
	SendScore(ctx context.Context, captainID string, won bool) (*models.Match, error)
	TryResolveMatches(ctx context.Context, requesterID, tournamentName string) (*StageResolution, error)
}

type bracketService struct {
	store    repositories.Store
	guard    guard
	notifier BracketNotifier
	logger   *slog.Logger
}

func NewBracketService(store repositories.Store, locker locks.Locker, lockWait time.Duration, notifier BracketNotifier, logger *slog.Logger) BracketService {
	return &bracketService{
		store:    store,
		guard:    guard{locker: locker, wait: lockWait},
		notifier: notifierOrNoop(notifier),
		logger:   logger,
	}
}

func (s *bracketService) ResolveMatch(ctx context.Context, requesterID, tournamentName, matchID string, winnerSlot int) (*models.Match, error) {
	if winnerSlot != 0 && winnerSlot != 1 {
		return nil, ValidationError("winner", "winner must be 0 (first team) or 1 (second team)")
	}
	if !utils.IsValidID(matchID) {
		return nil, ValidationError("match", "match id must be 24 hex characters")
	}

	unlock, err := s.guard.lockTournament(ctx, s.store, tournamentName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		match  *models.Match
		event  string
		stageN int
	)
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, team, err := loadActor(ctx, tx, requesterID)
		if err != nil {
			return err
		}
		t, err := tx.Tournaments().GetByName(ctx, tournamentName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.TournamentStatusRunning {
			return ErrTournamentNotRunning
		}
		stage, err := tx.Stages().Get(ctx, t.ID, t.CurrentStage)
		if err != nil {
			return handleRepositoryError(err)
		}
		if stage.Status != models.StageStatusRunning {
			return ErrStageNotRunning
		}
		m, ok := stage.MatchByID(matchID)
		if !ok {
			return ErrMatchNotFound
		}

		// Captaincy only counts for one of the two teams in the match.
		var slot int
		inMatch := false
		if team != nil {
			slot, inMatch = m.Slot(team.ID)
		}
		concerned := team
		if !inMatch {
			concerned = nil
		}
		caps := capabilities(user, concerned, t)
		if err := authorize(OpResolveMatch, caps); err != nil {
			return err
		}
		if m.Status == models.MatchStatusResolved {
			return ErrMatchResolved
		}

		// An admin captaining one of the teams reports like any captain until the match is disputed.
		override := caps&CapAdmin != 0 && (caps&CapCaptain == 0 || m.Status == models.MatchStatusDisputed)
		if override {
			decide(m, winnerSlot, models.ResolvedByAdmin)
			event = EventMatchResolved
		} else {
			event, err = report(m, slot, winnerSlot)
			if err != nil {
				return err
			}
		}
		m.UpdatedAt = nowUTC()

		if m.Status == models.MatchStatusResolved {
			if err := eliminateLoser(ctx, tx, t, stage.Number, m); err != nil {
				return err
			}
		}
		if err := tx.Stages().Update(ctx, stage); err != nil {
			return handleRepositoryError(err)
		}
		match, stageN = m.Clone(), stage.Number
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event == EventMatchDisputed {
		s.logger.Warn("match disputed",
			slog.String("tournament", tournamentName),
			slog.Int("stage", stageN),
			slog.String("match_id", match.ID))
	}
	s.notifier.Publish(tournamentName, event, match)
	return match, nil
}

// report records a captain's report for slot and derives the match status from both reports.
func report(m *models.Match, slot, winnerSlot int) (string, error) {
	if m.Status == models.MatchStatusDisputed {
		return "", ErrMatchDisputed
	}
	if m.Report(slot) != nil {
		return "", ErrScoreAlreadySent
	}
	m.SetReport(slot, winnerSlot)

	other := m.Report(1 - slot)
	switch {
	case other == nil:
		m.Status = models.MatchStatusAwaitingConfirmation
		return EventMatchReported, nil
	case *other == winnerSlot:
		decide(m, winnerSlot, models.ResolvedByCaptains)
		return EventMatchResolved, nil
	default:
		m.Status = models.MatchStatusDisputed
		return EventMatchDisputed, nil
	}
}

func decide(m *models.Match, winnerSlot int, by models.MatchResolution) {
	w := winnerSlot
	m.Winner = &w
	m.ResolvedBy = &by
	m.Status = models.MatchStatusResolved
}

// eliminateLoser takes the losing team out of the tournament and frees its roster.
func eliminateLoser(ctx context.Context, tx repositories.Store, t *models.Tournament, stage int, m *models.Match) error {
	loserID, _ := m.LoserTeamID()
	t.MarkEliminated(loserID, stage)
	if err := tx.Tournaments().Update(ctx, t); err != nil {
		return handleRepositoryError(err)
	}

	loser, err := tx.Teams().GetByID(ctx, loserID)
	if err != nil {
		return handleRepositoryError(err)
	}
	loser.ReleaseFromTournament()
	return handleRepositoryError(tx.Teams().Update(ctx, loser))
}

func (s *bracketService) SendScore(ctx context.Context, captainID string, won bool) (*models.Match, error) {
	user, team, err := loadActor(ctx, s.store, captainID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrUserHasNoTeam
	}
	if err := authorize(OpSendScore, capabilities(user, team, nil)); err != nil {
		return nil, err
	}
	if team.TournamentID == nil || team.Status != models.TeamStatusCompeting {
		return nil, ErrTeamNotCompeting
	}

	t, err := s.store.Tournaments().GetByID(ctx, *team.TournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if t.Status != models.TournamentStatusRunning {
		return nil, ErrTournamentNotRunning
	}
	stage, err := s.store.Stages().Get(ctx, t.ID, t.CurrentStage)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	m, ok := stage.MatchOfTeam(team.ID)
	if !ok {
		return nil, ErrTeamNotInStage
	}

	slot, _ := m.Slot(team.ID)
	winner := slot
	if !won {
		winner = 1 - slot
	}
	return s.ResolveMatch(ctx, captainID, t.Name, m.ID, winner)
}

func (s *bracketService) TryResolveMatches(ctx context.Context, requesterID, tournamentName string) (*StageResolution, error) {
	unlock, err := s.guard.lock(ctx, locks.TournamentKey(tournamentName))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var res *StageResolution
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByID(ctx, requesterID)
		if err != nil {
			return handleRepositoryError(err)
		}
		t, err := tx.Tournaments().GetByName(ctx, tournamentName)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := authorize(OpTryResolveMatches, capabilities(user, nil, t)); err != nil {
			return err
		}
		if t.Status != models.TournamentStatusRunning {
			return ErrTournamentNotRunning
		}
		res, err = sweep(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.transitioned {
		s.logger.Info("stage resolved", slog.String("tournament", tournamentName), slog.Int("stage", res.Stage))
		s.notifier.Publish(tournamentName, EventStageResolved, res)
	}
	return res, nil
}

// sweep marks the current stage resolved once every match has a winner. Repeating it changes nothing.
func sweep(ctx context.Context, tx repositories.Store, t *models.Tournament) (*StageResolution, error) {
	stage, err := tx.Stages().Get(ctx, t.ID, t.CurrentStage)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	res := &StageResolution{
		Tournament: t.Name,
		Stage:      stage.Number,
		Unresolved: stage.Unresolved(),
		stage:      stage,
	}
	if res.Unresolved == nil {
		res.Unresolved = []models.Match{}
	}
	if !stage.AllResolved() {
		return res, nil
	}

	res.Resolved = true
	if stage.Status != models.StageStatusResolved {
		stage.Status = models.StageStatusResolved
		if err := tx.Stages().Update(ctx, stage); err != nil {
			return nil, handleRepositoryError(err)
		}
		res.transitioned = true
	}
	return res, nil
}

// buildStage pairs field in order with the tournament's bracket format and stores the new stage.
func buildStage(ctx context.Context, tx repositories.Store, t *models.Tournament, field []string, number int) (*models.Stage, error) {
	gen, err := brackets.ForFormat(t.Type)
	if err != nil {
		return nil, ValidationError("type", err.Error())
	}
	pairings, err := gen.GeneratePairings(field)
	if err != nil {
		return nil, fmt.Errorf("failed to pair stage %d of %s: %w", number, t.Name, err)
	}

	now := nowUTC()
	stage := &models.Stage{
		ID:           utils.NewID(),
		TournamentID: t.ID,
		Number:       number,
		Status:       models.StageStatusRunning,
		Matches:      make([]models.Match, 0, len(pairings)),
	}
	for _, p := range pairings {
		stage.Matches = append(stage.Matches, models.Match{
			ID:           utils.NewID(),
			StageID:      stage.ID,
			TournamentID: t.ID,
			Position:     p.Position,
			TeamAID:      p.TeamA,
			TeamBID:      p.TeamB,
			Status:       models.MatchStatusPending,
			UpdatedAt:    now,
		})
	}
	if err := tx.Stages().Create(ctx, stage); err != nil {
		return nil, handleRepositoryError(err)
	}
	return stage, nil
}

package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/utils"
)

type HallOfFameService interface {
	List(ctx context.Context) ([]models.HallOfFameRecord, error)
	Record(ctx context.Context, champion *models.Team, tournament *models.Tournament) (*models.HallOfFameRecord, error)
}

type hallOfFameService struct {
	store  repositories.Store
	logger *slog.Logger
}

func NewHallOfFameService(store repositories.Store, logger *slog.Logger) HallOfFameService {
	return &hallOfFameService{store: store, logger: logger}
}

func (s *hallOfFameService) List(ctx context.Context) ([]models.HallOfFameRecord, error) {
	records, err := s.store.HallOfFame().List(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if records == nil {
		records = []models.HallOfFameRecord{}
	}
	return records, nil
}

func (s *hallOfFameService) Record(ctx context.Context, champion *models.Team, tournament *models.Tournament) (*models.HallOfFameRecord, error) {
	rec := &models.HallOfFameRecord{
		ID:             utils.NewID(),
		TeamID:         champion.ID,
		TeamName:       champion.Name,
		TournamentID:   tournament.ID,
		TournamentName: tournament.Name,
	}
	if err := s.store.HallOfFame().Create(ctx, rec); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.Info("hall of fame record created", slog.String("team", rec.TeamName), slog.String("tournament", rec.TournamentName))
	return rec, nil
}

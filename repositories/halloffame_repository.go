package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
)

type HallOfFameRepository interface {
	Create(ctx context.Context, record *models.HallOfFameRecord) error
	List(ctx context.Context) ([]models.HallOfFameRecord, error)
}

type postgresHallOfFameRepository struct {
	db SQLExecutor
}

func NewPostgresHallOfFameRepository(db SQLExecutor) HallOfFameRepository {
	return &postgresHallOfFameRepository{db: db}
}

func (r *postgresHallOfFameRepository) Create(ctx context.Context, rec *models.HallOfFameRecord) error {
	query := `
		INSERT INTO hall_of_fame (id, team_id, team_name, tournament_id, tournament_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.TeamID, rec.TeamName, rec.TournamentID, rec.TournamentName,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create hall of fame record: %w", err)
	}
	return nil
}

func (r *postgresHallOfFameRepository) List(ctx context.Context) ([]models.HallOfFameRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, team_name, tournament_id, tournament_name, created_at
		FROM hall_of_fame ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hall of fame: %w", err)
	}
	defer rows.Close()

	records := []models.HallOfFameRecord{}
	for rows.Next() {
		var rec models.HallOfFameRecord
		if err := rows.Scan(&rec.ID, &rec.TeamID, &rec.TeamName, &rec.TournamentID, &rec.TournamentName, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hall of fame record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
)

var (
	ErrStageNotFound = errors.New("stage not found")
	ErrStageConflict = errors.New("stage already exists for this tournament")
	ErrMatchNotFound = errors.New("match not found")
)

// StageRepository persists stages together with their matches.
type StageRepository interface {
	Create(ctx context.Context, stage *models.Stage) error
	Get(ctx context.Context, tournamentID string, number int) (*models.Stage, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]models.Stage, error)
	Update(ctx context.Context, stage *models.Stage) error
}

type postgresStageRepository struct {
	db SQLExecutor
}

func NewPostgresStageRepository(db SQLExecutor) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) Create(ctx context.Context, stage *models.Stage) error {
	query := `
		INSERT INTO stages (id, tournament_id, number, status, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		stage.ID,
		stage.TournamentID,
		stage.Number,
		stage.Status,
		nullableTime(stage.EndDate),
	).Scan(&stage.CreatedAt)
	if err != nil {
		if constraint, ok := pqConstraint(err, pqUniqueViolation); ok && constraint == "stages_tournament_id_number_key" {
			return ErrStageConflict
		}
		return fmt.Errorf("failed to create stage %d: %w", stage.Number, err)
	}

	matchQuery := `
		INSERT INTO matches (id, stage_id, tournament_id, position, team_a_id, team_b_id, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, m := range stage.Matches {
		_, err := r.db.ExecContext(ctx, matchQuery,
			m.ID, stage.ID, stage.TournamentID, m.Position, m.TeamAID, m.TeamBID, m.Status, m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create match %s: %w", m.ID, err)
		}
	}
	return nil
}

const selectStage = `SELECT id, tournament_id, number, status, end_date, created_at FROM stages`

func (r *postgresStageRepository) Get(ctx context.Context, tournamentID string, number int) (*models.Stage, error) {
	stage, err := scanStage(r.db.QueryRowContext(ctx, selectStage+` WHERE tournament_id = $1 AND number = $2`, tournamentID, number))
	if err != nil {
		return nil, err
	}
	if err := r.loadMatches(ctx, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

func (r *postgresStageRepository) ListByTournament(ctx context.Context, tournamentID string) ([]models.Stage, error) {
	rows, err := r.db.QueryContext(ctx, selectStage+` WHERE tournament_id = $1 ORDER BY number`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var stages []models.Stage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *stage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stages: %w", err)
	}

	for i := range stages {
		if err := r.loadMatches(ctx, &stages[i]); err != nil {
			return nil, err
		}
	}
	return stages, nil
}

func (r *postgresStageRepository) Update(ctx context.Context, stage *models.Stage) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stages SET status = $1, end_date = $2 WHERE id = $3`,
		stage.Status, nullableTime(stage.EndDate), stage.ID)
	if err != nil {
		return fmt.Errorf("failed to update stage %s: %w", stage.ID, err)
	}
	if err := checkAffectedRows(result, ErrStageNotFound); err != nil {
		return err
	}

	matchQuery := `
		UPDATE matches
		SET report_a = $1, report_b = $2, winner = $3, status = $4, resolved_by = $5, updated_at = $6
		WHERE id = $7`
	for _, m := range stage.Matches {
		var resolvedBy sql.NullString
		if m.ResolvedBy != nil {
			resolvedBy = sql.NullString{String: string(*m.ResolvedBy), Valid: true}
		}
		result, err := r.db.ExecContext(ctx, matchQuery,
			nullableInt(m.ReportA), nullableInt(m.ReportB), nullableInt(m.Winner),
			m.Status, resolvedBy, m.UpdatedAt, m.ID)
		if err != nil {
			return fmt.Errorf("failed to update match %s: %w", m.ID, err)
		}
		if err := checkAffectedRows(result, ErrMatchNotFound); err != nil {
			return err
		}
	}
	return nil
}

func scanStage(row rowScanner) (*models.Stage, error) {
	var s models.Stage
	var endDate sql.NullTime
	if err := row.Scan(&s.ID, &s.TournamentID, &s.Number, &s.Status, &endDate, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to scan stage: %w", err)
	}
	if endDate.Valid {
		d := endDate.Time
		s.EndDate = &d
	}
	return &s, nil
}

func (r *postgresStageRepository) loadMatches(ctx context.Context, stage *models.Stage) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stage_id, tournament_id, position, team_a_id, team_b_id,
		       report_a, report_b, winner, status, resolved_by, updated_at
		FROM matches WHERE stage_id = $1 ORDER BY position`, stage.ID)
	if err != nil {
		return fmt.Errorf("failed to load matches of stage %s: %w", stage.ID, err)
	}
	defer rows.Close()

	stage.Matches = []models.Match{}
	for rows.Next() {
		var m models.Match
		var reportA, reportB, winner sql.NullInt64
		var resolvedBy sql.NullString
		err := rows.Scan(&m.ID, &m.StageID, &m.TournamentID, &m.Position, &m.TeamAID, &m.TeamBID,
			&reportA, &reportB, &winner, &m.Status, &resolvedBy, &m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to scan match: %w", err)
		}
		m.ReportA, m.ReportB, m.Winner = intPtr(reportA), intPtr(reportB), intPtr(winner)
		if resolvedBy.Valid {
			rb := models.MatchResolution(resolvedBy.String)
			m.ResolvedBy = &rb
		}
		stage.Matches = append(stage.Matches, m)
	}
	return rows.Err()
}

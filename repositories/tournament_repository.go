package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict")
	ErrEntryConflict          = errors.New("team already entered or entry position taken")
)

// TournamentRepository persists tournaments and their entry list. Entries are append-only;
// Update writes the elimination marks of existing entries.
type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	GetByName(ctx context.Context, name string) (*models.Tournament, error)
	List(ctx context.Context) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
}

type postgresTournamentRepository struct {
	db SQLExecutor
}

func NewPostgresTournamentRepository(db SQLExecutor) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, name, number_of_competitors, type, status, current_stage, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID,
		t.Name,
		t.NumberOfCompetitors,
		t.Type,
		t.Status,
		t.CurrentStage,
		t.CreatorID,
	).Scan(&t.CreatedAt)
	if err != nil {
		if constraint, ok := pqConstraint(err, pqUniqueViolation); ok && constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return r.saveEntries(ctx, t)
}

const selectTournament = `
	SELECT id, name, number_of_competitors, type, status, current_stage, creator_id, winner_team_id, created_at, finished_at
	FROM tournaments`

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	return r.getOne(ctx, selectTournament+` WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetByName(ctx context.Context, name string) (*models.Tournament, error) {
	return r.getOne(ctx, selectTournament+` WHERE name = $1`, name)
}

func (r *postgresTournamentRepository) List(ctx context.Context) ([]models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, selectTournament+` ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []models.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournaments: %w", err)
	}

	for i := range tournaments {
		if err := r.loadEntries(ctx, &tournaments[i]); err != nil {
			return nil, err
		}
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET status = $1, current_stage = $2, winner_team_id = $3, finished_at = $4
		WHERE id = $5`

	var finishedAt sql.NullTime
	if t.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *t.FinishedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		t.Status,
		t.CurrentStage,
		nullableString(t.WinnerTeamID),
		finishedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament %s: %w", t.ID, err)
	}
	if err := checkAffectedRows(result, ErrTournamentNotFound); err != nil {
		return err
	}
	return r.saveEntries(ctx, t)
}

func (r *postgresTournamentRepository) saveEntries(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournament_entries (tournament_id, team_id, team_name, position, signed_at, eliminated_in_stage)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tournament_id, team_id) DO UPDATE SET eliminated_in_stage = EXCLUDED.eliminated_in_stage`

	for _, e := range t.Entries {
		_, err := r.db.ExecContext(ctx, query,
			t.ID, e.TeamID, e.TeamName, e.Position, e.SignedAt, nullableInt(e.EliminatedInStage))
		if err != nil {
			if _, ok := pqConstraint(err, pqUniqueViolation); ok {
				return ErrEntryConflict
			}
			return fmt.Errorf("failed to save entry of team %s: %w", e.TeamID, err)
		}
	}
	return nil
}

func (r *postgresTournamentRepository) getOne(ctx context.Context, query, arg string) (*models.Tournament, error) {
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadEntries(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	var winner sql.NullString
	var finishedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Name, &t.NumberOfCompetitors, &t.Type, &t.Status, &t.CurrentStage,
		&t.CreatorID, &winner, &t.CreatedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	t.WinnerTeamID = stringPtr(winner)
	if finishedAt.Valid {
		f := finishedAt.Time
		t.FinishedAt = &f
	}
	return &t, nil
}

func (r *postgresTournamentRepository) loadEntries(ctx context.Context, t *models.Tournament) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT team_id, team_name, position, signed_at, eliminated_in_stage
		FROM tournament_entries
		WHERE tournament_id = $1
		ORDER BY position`, t.ID)
	if err != nil {
		return fmt.Errorf("failed to load entries of tournament %s: %w", t.ID, err)
	}
	defer rows.Close()

	t.Entries = []models.TournamentEntry{}
	for rows.Next() {
		var e models.TournamentEntry
		var eliminated sql.NullInt64
		if err := rows.Scan(&e.TeamID, &e.TeamName, &e.Position, &e.SignedAt, &eliminated); err != nil {
			return fmt.Errorf("failed to scan tournament entry: %w", err)
		}
		e.EliminatedInStage = intPtr(eliminated)
		t.Entries = append(t.Entries, e)
	}
	return rows.Err()
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-arena/models"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamNameConflict   = errors.New("team name conflict")
	ErrTeamMemberConflict = errors.New("user already belongs to a team")
	ErrTeamUserInvalid    = errors.New("team member or applicant does not exist")
)

// TeamRepository persists the team aggregate: the team row, its roster and its pending join requests.
type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	GetByName(ctx context.Context, name string) (*models.Team, error)
	GetByMember(ctx context.Context, userID string) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id string) error
	DeleteRequestsByUser(ctx context.Context, userID string) error
}

type postgresTeamRepository struct {
	db SQLExecutor
}

func NewPostgresTeamRepository(db SQLExecutor) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (id, name, captain_id, status, capacity, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		team.ID,
		team.Name,
		team.CaptainID,
		team.Status,
		team.Capacity,
		nullableString(team.TournamentID),
	).Scan(&team.CreatedAt)
	if err != nil {
		if constraint, ok := pqConstraint(err, pqUniqueViolation); ok && constraint == "teams_name_key" {
			return ErrTeamNameConflict
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return r.saveRoster(ctx, team)
}

const selectTeam = `SELECT id, name, captain_id, status, capacity, tournament_id, created_at FROM teams`

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	return r.getOne(ctx, selectTeam+` WHERE id = $1`, id)
}

func (r *postgresTeamRepository) GetByName(ctx context.Context, name string) (*models.Team, error) {
	return r.getOne(ctx, selectTeam+` WHERE name = $1`, name)
}

func (r *postgresTeamRepository) GetByMember(ctx context.Context, userID string) (*models.Team, error) {
	return r.getOne(ctx, selectTeam+` WHERE id = (SELECT team_id FROM team_members WHERE user_id = $1)`, userID)
}

func (r *postgresTeamRepository) List(ctx context.Context) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, selectTeam+` ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	for i := range teams {
		if err := r.loadRoster(ctx, &teams[i]); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, team *models.Team) error {
	query := `
		UPDATE teams SET name = $1, captain_id = $2, status = $3, capacity = $4, tournament_id = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		team.Name,
		team.CaptainID,
		team.Status,
		team.Capacity,
		nullableString(team.TournamentID),
		team.ID,
	)
	if err != nil {
		if constraint, ok := pqConstraint(err, pqUniqueViolation); ok && constraint == "teams_name_key" {
			return ErrTeamNameConflict
		}
		return fmt.Errorf("failed to update team %s: %w", team.ID, err)
	}
	if err := checkAffectedRows(result, ErrTeamNotFound); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, team.ID); err != nil {
		return fmt.Errorf("failed to clear roster of team %s: %w", team.ID, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_join_requests WHERE team_id = $1`, team.ID); err != nil {
		return fmt.Errorf("failed to clear join requests of team %s: %w", team.ID, err)
	}
	return r.saveRoster(ctx, team)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) DeleteRequestsByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_join_requests WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete join requests of user %s: %w", userID, err)
	}
	return nil
}

func (r *postgresTeamRepository) saveRoster(ctx context.Context, team *models.Team) error {
	for _, m := range team.Members {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO team_members (team_id, user_id, joined_at) VALUES ($1, $2, $3)`,
			team.ID, m.UserID, m.JoinedAt)
		if err != nil {
			return mapRosterError(err)
		}
	}
	for _, req := range team.Requests {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO team_join_requests (team_id, user_id, created_at) VALUES ($1, $2, $3)`,
			team.ID, req.UserID, req.CreatedAt)
		if err != nil {
			return mapRosterError(err)
		}
	}
	return nil
}

func mapRosterError(err error) error {
	if constraint, ok := pqConstraint(err, pqUniqueViolation); ok && constraint == "team_members_user_id_key" {
		return ErrTeamMemberConflict
	}
	if _, ok := pqConstraint(err, pqForeignKeyViolation); ok {
		return ErrTeamUserInvalid
	}
	return fmt.Errorf("failed to save team roster: %w", err)
}

func (r *postgresTeamRepository) getOne(ctx context.Context, query string, arg string) (*models.Team, error) {
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadRoster(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var team models.Team
	var tournamentID sql.NullString
	err := row.Scan(&team.ID, &team.Name, &team.CaptainID, &team.Status, &team.Capacity, &tournamentID, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}
	team.TournamentID = stringPtr(tournamentID)
	return &team, nil
}

func (r *postgresTeamRepository) loadRoster(ctx context.Context, team *models.Team) error {
	members, err := r.db.QueryContext(ctx, `
		SELECT tm.user_id, u.username, tm.joined_at
		FROM team_members tm JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at, tm.user_id`, team.ID)
	if err != nil {
		return fmt.Errorf("failed to load members of team %s: %w", team.ID, err)
	}
	defer members.Close()

	team.Members = []models.TeamMember{}
	for members.Next() {
		var m models.TeamMember
		if err := members.Scan(&m.UserID, &m.Username, &m.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan team member: %w", err)
		}
		team.Members = append(team.Members, m)
	}
	if err := members.Err(); err != nil {
		return err
	}

	requests, err := r.db.QueryContext(ctx, `
		SELECT r.user_id, u.username, r.created_at
		FROM team_join_requests r JOIN users u ON u.id = r.user_id
		WHERE r.team_id = $1
		ORDER BY r.created_at, r.user_id`, team.ID)
	if err != nil {
		return fmt.Errorf("failed to load join requests of team %s: %w", team.ID, err)
	}
	defer requests.Close()

	team.Requests = nil
	for requests.Next() {
		var req models.JoinRequest
		if err := requests.Scan(&req.UserID, &req.Username, &req.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan join request: %w", err)
		}
		team.Requests = append(team.Requests, req)
	}
	return requests.Err()
}

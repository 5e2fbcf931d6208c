package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store groups the repositories. WithinTx runs fn against repositories bound to one transaction:
// if fn returns an error none of its writes are applied.
type Store interface {
	Users() UserRepository
	Teams() TeamRepository
	Tournaments() TournamentRepository
	Stages() StageRepository
	HallOfFame() HallOfFameRepository

	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type postgresStore struct {
	db   *sql.DB
	exec SQLExecutor
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db, exec: db}
}

func (s *postgresStore) Users() UserRepository { return NewPostgresUserRepository(s.exec) }

func (s *postgresStore) Teams() TeamRepository { return NewPostgresTeamRepository(s.exec) }

func (s *postgresStore) Tournaments() TournamentRepository {
	return NewPostgresTournamentRepository(s.exec)
}

func (s *postgresStore) Stages() StageRepository { return NewPostgresStageRepository(s.exec) }

func (s *postgresStore) HallOfFame() HallOfFameRepository {
	return NewPostgresHallOfFameRepository(s.exec)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) (txErr error) {
	if _, inTx := s.exec.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				txErr = fmt.Errorf("%w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(&postgresStore{db: s.db, exec: tx})
}

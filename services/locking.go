package services

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/Dosada05/esports-arena/locks"
	"github.com/Dosada05/esports-arena/repositories"
)

// guard serializes mutations: one lock per tournament name and one per team name.
// Tournament locks are always taken before team locks, team locks in name order.
type guard struct {
	locker locks.Locker
	wait   time.Duration
}

func (g guard) lock(ctx context.Context, keys ...string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()

	unlock, err := locks.LockAll(lockCtx, g.locker, keys...)
	if err != nil {
		if errors.Is(err, locks.ErrLockTimeout) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	return unlock, nil
}

func (g guard) lockTeam(ctx context.Context, teamName string) (func(), error) {
	return g.lock(ctx, locks.TeamKey(teamName))
}

// lockTournament takes the tournament lock and then the locks of every team still in play.
func (g guard) lockTournament(ctx context.Context, store repositories.Store, name string) (func(), error) {
	unlockTournament, err := g.lock(ctx, locks.TournamentKey(name))
	if err != nil {
		return nil, err
	}

	t, err := store.Tournaments().GetByName(ctx, name)
	if err != nil {
		unlockTournament()
		return nil, handleRepositoryError(err)
	}

	keys := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.EliminatedInStage == nil {
			keys = append(keys, locks.TeamKey(e.TeamName))
		}
	}
	slices.Sort(keys)

	unlockTeams, err := g.lock(ctx, keys...)
	if err != nil {
		unlockTournament()
		return nil, err
	}
	return func() {
		unlockTeams()
		unlockTournament()
	}, nil
}

// lockTournamentAndTeam is used when a team joins a tournament and is not yet among its entries.
func (g guard) lockTournamentAndTeam(ctx context.Context, tournamentName, teamName string) (func(), error) {
	return g.lock(ctx, locks.TournamentKey(tournamentName), locks.TeamKey(teamName))
}

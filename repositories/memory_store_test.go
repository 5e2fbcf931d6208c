package repositories

import (
	"context"
	"testing"

	"github.com/Dosada05/esports-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	captain := newUser(t, store, "captain")
	team := newTeam(captain, "Wolves")
	require.NoError(t, store.Teams().Create(ctx, team))

	team.Members = nil
	got, err := store.Teams().GetByID(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, 1)

	got.Status = models.TeamStatusFull
	got.Members[0].Username = "mallory"
	again, err := store.Teams().GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatusFree, again.Status)
	assert.Equal(t, "captain", again.Members[0].Username)
}

package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/turnsync/internal/engine"
)

func TestSessionRecord_Identity(t *testing.T) {
	rec := SessionRecord{GameID: 5, PlayerID: 2, AuthKey: "k"}
	id := rec.Identity()
	assert.Equal(t, engine.Identity{GameID: 5, PlayerID: 2, AuthKey: "k"}, id)
	assert.Equal(t, "sync_sessions", rec.TableName())
}

// Needs a disposable database: TURNSYNC_TEST_DATABASE_URL=postgres://...
func TestRepo_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TURNSYNC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TURNSYNC_TEST_DATABASE_URL not set")
	}
	repo, err := Open(dsn)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.db.Exec("DELETE FROM sync_sessions").Error)

	require.NoError(t, repo.SaveSession(ctx, engine.Identity{GameID: 2, PlayerID: 1, AuthKey: "b"}))
	require.NoError(t, repo.SaveSession(ctx, engine.Identity{GameID: 1, PlayerID: 2, AuthKey: "a"}))
	// Saving again must not replace the stored key.
	require.NoError(t, repo.SaveSession(ctx, engine.Identity{GameID: 1, PlayerID: 9, AuthKey: "other"}))

	ids, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "a", ids[0].AuthKey)
	assert.Equal(t, 2, ids[1].GameID)

	require.NoError(t, repo.DeleteSession(ctx, 1))
	ids, err = repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
}

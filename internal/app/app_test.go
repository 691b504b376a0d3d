package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpatryk/BuggyVege/internal/logger"
	"github.com/rzpatryk/BuggyVege/internal/storage/inmemory"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()

	require.NoError(t, seedAdmin(ctx, store, "Admin@Example.com", "password123", logger.Nop()))

	admin, err := store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	// A second start with the same account is fine.
	require.NoError(t, seedAdmin(ctx, store, "admin@example.com", "password123", logger.Nop()))
}

func TestSeedAdminSkippedWithoutCredentials(t *testing.T) {
	store := inmemory.NewStorage()

	require.NoError(t, seedAdmin(context.Background(), store, "", "", logger.Nop()))

	_, err := store.GetUserByEmail(context.Background(), "")
	assert.Error(t, err)
}

func TestSeedAdminRejectsWeakPassword(t *testing.T) {
	err := seedAdmin(context.Background(), inmemory.NewStorage(), "admin@example.com", "short", logger.Nop())
	assert.Error(t, err)
}

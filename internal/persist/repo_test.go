package persist

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/a3zone/server/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// openTestDB connects to the database named by A3_TEST_DSN and migrates it.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("A3_TEST_DSN")
	if dsn == "" {
		t.Skip("A3_TEST_DSN not set")
	}
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4}, log)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	_, err = RunMigrations(ctx, db.Pool, log)
	require.NoError(t, err)
	return db
}

func TestCharacterRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCharacterRepo(db)

	c := testCharacter(t)
	c.Name = "hero-" + uuid.NewString()[:8]
	t.Cleanup(func() { repo.Delete(context.Background(), c.Name) })

	_, err := repo.Load(ctx, c.Name)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Save(ctx, c))
	c.Level = 46
	c.Materials["bandit_scrap"] = 7
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.Load(ctx, c.Name)
	require.NoError(t, err)
	assert.Equal(t, 46, got.Level)
	assert.Equal(t, 7, got.Materials["bandit_scrap"])
	assert.Len(t, got.Inventory, len(c.Inventory))
}

func TestAccountRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAccountRepo(db)
	name := "acct-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		db.Pool.Exec(context.Background(), `DELETE FROM accounts WHERE name = $1`, name)
	})

	_, err := repo.Load(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Create(ctx, "Acct"+name[4:], "secret", "127.0.0.1")
	require.NoError(t, err)
	require.NoError(t, repo.RecordLogin(ctx, name, "10.1.1.1"))

	a, err := repo.Load(ctx, strings.ToUpper(name))
	require.NoError(t, err)
	assert.Equal(t, name, a.Name)
	assert.Equal(t, "Acct"+name[4:], a.DisplayName)
	assert.True(t, a.ValidatePassword("secret"))
	assert.Equal(t, "10.1.1.1", a.LastIP)
}

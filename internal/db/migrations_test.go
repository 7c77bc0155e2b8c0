package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreComplete(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %q", name)
		}
	}

	// Every up migration must have a matching down migration.
	assert.Equal(t, ups, downs)
}

func TestInitialMigrationCreatesUsersTable(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/0001_create_users.up.sql")
	require.NoError(t, err)

	sql := string(content)
	assert.Contains(t, sql, "CREATE TABLE")
	assert.Contains(t, sql, "users")
	assert.Contains(t, sql, "password_hash")
	assert.Contains(t, sql, "last_login_at")
}

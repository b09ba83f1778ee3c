package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS(t *testing.T) {
	files, err := fs.Glob(MigrationsFS, "*.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{"00001_users.sql", "00002_classification_jobs.sql"}, files)

	for _, name := range files {
		data, err := fs.ReadFile(MigrationsFS, name)
		require.NoError(t, err)

		assert.Contains(t, string(data), "-- +goose Up", name)
		assert.Contains(t, string(data), "-- +goose Down", name)
	}
}

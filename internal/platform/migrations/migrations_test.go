package migrations

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(files, Dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		data, err := fs.ReadFile(files, Dir+"/"+entry.Name())
		require.NoError(t, err)

		content := string(data)
		assert.True(t, strings.HasSuffix(entry.Name(), ".sql"), entry.Name())
		assert.Contains(t, content, "-- +goose Up", entry.Name())
		assert.Contains(t, content, "-- +goose Down", entry.Name())
	}
}

func TestBatchJobsSchemaEnforcesInvariants(t *testing.T) {
	data, err := fs.ReadFile(files, Dir+"/00001_create_batch_jobs.sql")
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "UNIQUE (job_type, week, year)")
	assert.Contains(t, content, "success_count + error_count <= total_requests")
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := Run(context.Background(), nil, nil, "drop-everything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported migration command")
}

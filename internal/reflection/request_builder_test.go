package reflection_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/mocks"
	"github.com/phrazzld/reflections-api/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var builderConfig = reflection.BuilderConfig{
	Model:     "gpt-4o-mini",
	MaxTokens: 600,
	Endpoint:  "/v1/chat/completions",
}

func TestEligibilityResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("deduplicates and sorts", func(t *testing.T) {
		source := &mocks.MockActivitySource{Subscribers: []string{"carol", "alice", "", "carol", "bob"}}
		users, err := reflection.NewEligibilityResolver(source, testLogger()).Resolve(ctx, targetWeek)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob", "carol"}, users)
	})

	t.Run("source failure", func(t *testing.T) {
		source := &mocks.MockActivitySource{Err: errors.New("connection refused")}
		_, err := reflection.NewEligibilityResolver(source, testLogger()).Resolve(ctx, targetWeek)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2024-W42")
	})
}

func TestRequestBuilderBuild(t *testing.T) {
	ctx := context.Background()
	source := activityFor("alice", "bob", "carol")
	source.Completed["bob"] = nil
	source.WeeklyActivityFn = func(ctx context.Context, userID string, week domain.Week) (*domain.WeeklyActivity, error) {
		if userID == "carol" {
			return nil, errors.New("timeout")
		}
		return &domain.WeeklyActivity{
			UserID:          userID,
			Week:            week,
			Completed:       source.Completed[userID],
			IncompleteCount: source.Incomplete[userID],
		}, nil
	}

	builder := reflection.NewRequestBuilder(source, nil, builderConfig, testLogger())
	requests, stats := builder.Build(ctx, targetWeek, []string{"alice", "bob", "carol"})

	assert.Equal(t, reflection.BuildStats{Eligible: 3, Included: 1, Skipped: 1, Failed: 1}, stats)
	require.Len(t, requests, 1)

	req := requests[0]
	assert.Equal(t, "alice_2024_42", req.CustomID)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/v1/chat/completions", req.URL)
	assert.Equal(t, "gpt-4o-mini", req.Body.Model)
	assert.Equal(t, 600, req.Body.MaxTokens)
	require.Len(t, req.Body.Messages, 2)
	assert.Equal(t, "system", req.Body.Messages[0].Role)
	assert.Equal(t, "user", req.Body.Messages[1].Role)
	assert.Contains(t, req.Body.Messages[1].Content, "task for alice")
	assert.Contains(t, req.Body.Messages[1].Content, "2024-W42")
	assert.Contains(t, req.Body.Messages[1].Content, "Still open at the end of the week: 2")
}

func TestRequestBuilderNoUsers(t *testing.T) {
	builder := reflection.NewRequestBuilder(&mocks.MockActivitySource{}, nil, builderConfig, testLogger())
	requests, stats := builder.Build(context.Background(), targetWeek, nil)
	assert.Empty(t, requests)
	assert.Equal(t, reflection.BuildStats{}, stats)
}

func TestLoadPrompts(t *testing.T) {
	activity := &domain.WeeklyActivity{
		UserID:          "alice",
		Week:            targetWeek,
		Completed:       completedTodos("write report", "call mom"),
		IncompleteCount: 4,
	}

	t.Run("embedded defaults", func(t *testing.T) {
		system, user, err := reflection.DefaultPrompts().Render(activity)
		require.NoError(t, err)
		assert.NotEmpty(t, system)
		assert.Contains(t, user, "Oct 14 to Oct 20, 2024")
		assert.Contains(t, user, "- write report")
		assert.Contains(t, user, "- call mom")
		assert.Contains(t, user, "Completed this week (2)")
	})

	t.Run("override from file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "user.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("{{.Month}}: {{len .Completed}} done"), 0o600))

		prompts, err := reflection.LoadPrompts("", path)
		require.NoError(t, err)
		_, user, err := prompts.Render(activity)
		require.NoError(t, err)
		assert.Equal(t, "October: 2 done", user)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := reflection.LoadPrompts(filepath.Join(t.TempDir(), "nope.tmpl"), "")
		assert.Error(t, err)
	})

	t.Run("bad template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("{{.Week"), 0o600))
		_, err := reflection.LoadPrompts(path, "")
		assert.Error(t, err)
	})
}

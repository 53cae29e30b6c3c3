package reflection_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/mocks"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
	"github.com/phrazzld/reflections-api/internal/reflection"
	"github.com/stretchr/testify/require"
)

var (
	// sundayEvening is inside the window opened at Sunday 2024-10-20 20:00 UTC.
	sundayEvening = time.Date(2024, time.October, 20, 21, 0, 0, 0, time.UTC)
	// targetWeek is the week reflected on by that window.
	targetWeek = domain.Week{Year: 2024, Week: 42}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow(t *testing.T) reflection.Window {
	t.Helper()
	w, err := reflection.NewWindow("sunday", 20, 30*time.Hour)
	require.NoError(t, err)
	return w
}

func completedTodos(titles ...string) []domain.TodoSnapshot {
	todos := make([]domain.TodoSnapshot, 0, len(titles))
	for i, title := range titles {
		todos = append(todos, domain.TodoSnapshot{
			ID:          title,
			Title:       title,
			CompletedAt: targetWeek.Start().Add(time.Duration(i+1) * 24 * time.Hour),
		})
	}
	return todos
}

// activityFor returns a source where every listed user completed one todo.
func activityFor(users ...string) *mocks.MockActivitySource {
	source := &mocks.MockActivitySource{
		Subscribers: users,
		Completed:   map[string][]domain.TodoSnapshot{},
		Incomplete:  map[string]int{},
	}
	for _, u := range users {
		source.Completed[u] = completedTodos("task for " + u)
		source.Incomplete[u] = 2
	}
	return source
}

func successLine(t *testing.T, customID, content string) string {
	t.Helper()
	line := map[string]any{
		"id":        "resp_" + customID,
		"custom_id": customID,
		"response": map[string]any{
			"status_code": 200,
			"body": map[string]any{
				"choices": []any{
					map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
				},
			},
		},
		"error": nil,
	}
	data, err := json.Marshal(line)
	require.NoError(t, err)
	return string(data)
}

func errorLine(t *testing.T, customID, message string) string {
	t.Helper()
	line := map[string]any{
		"id":        "resp_" + customID,
		"custom_id": customID,
		"response":  nil,
		"error":     map[string]any{"code": "server_error", "message": message},
	}
	data, err := json.Marshal(line)
	require.NoError(t, err)
	return string(data)
}

func jsonl(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func submittedJob(t *testing.T, id string, week domain.Week, status domain.JobStatus, total int, at time.Time) *domain.BatchJob {
	t.Helper()
	job, err := domain.NewBatchJob(id, domain.WeeklyReflectionKey(week), domain.JobStatusPending, total, at)
	require.NoError(t, err)
	job.Status = status
	if status.IsTerminal() {
		completed := at.Add(time.Hour)
		job.CompletedAt = &completed
	}
	require.NoError(t, job.Validate())
	return job
}

func completedBatch(id, outputFileID, errorFileID string) *batchapi.Batch {
	return &batchapi.Batch{
		ID:           id,
		Status:       batchapi.StatusCompleted,
		OutputFileID: outputFileID,
		ErrorFileID:  errorFileID,
	}
}

package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/reflections-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	withTrace := SetTraceID(ctx)
	traceID := GetTraceID(withTrace)
	assert.Len(t, traceID, 32)
	assert.NotEqual(t, traceID, GetTraceID(SetTraceID(ctx)))

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
}

func TestSubject(t *testing.T) {
	_, ok := SubjectFromContext(context.Background())
	assert.False(t, ok)

	_, ok = SubjectFromContext(WithSubject(context.Background(), ""))
	assert.False(t, ok)

	subject, ok := SubjectFromContext(WithSubject(context.Background(), "admin-1"))
	assert.True(t, ok)
	assert.Equal(t, "admin-1", subject)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 20, false},
		{"?limit=5", 5, false},
		{"?limit=-3", -3, false},
		{"?limit=abc", 0, true},
	}
	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodGet, "/jobs"+tc.query, nil)
		got, err := QueryInt(r, "limit", 20)
		if tc.wantErr {
			assert.Error(t, err, tc.query)
			continue
		}
		require.NoError(t, err, tc.query)
		assert.Equal(t, tc.want, got, tc.query)
	}
}

func TestValidateRequest(t *testing.T) {
	type params struct {
		Limit int `validate:"gte=1,lte=100"`
	}
	assert.NoError(t, ValidateRequest(&params{Limit: 10}))
	assert.Error(t, ValidateRequest(&params{Limit: 0}))
}

func TestRespondWithErrorAndLog(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := httptest.NewRequest(http.MethodGet, "/api/admin/jobs", nil)
	ctx := logger.WithLogger(SetTraceID(r.Context()), log)
	r = r.WithContext(ctx)
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list jobs",
		errors.New("dial postgres://app:hunter2@db:5432/app failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Failed to list jobs", body.Error)
	assert.Equal(t, GetTraceID(ctx), body.TraceID)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.NotContains(t, entry["error"], "hunter2")
}

func TestRespondWithErrorLevels(t *testing.T) {
	for _, tc := range []struct {
		status int
		opts   []ResponseOption
		level  string
	}{
		{http.StatusNotFound, nil, "DEBUG"},
		{http.StatusTooManyRequests, nil, "WARN"},
		{http.StatusForbidden, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
	} {
		var logs bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r = r.WithContext(logger.WithLogger(r.Context(), log))

		RespondWithError(httptest.NewRecorder(), r, tc.status, "nope", tc.opts...)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
		assert.Equal(t, tc.level, entry["level"], "status %d", tc.status)
	}
}

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/reflections-api/internal/api/shared"
)

// Page size bounds of the job listing.
const (
	DefaultJobLimit = 20
	MaxJobLimit     = 100
)

type listJobsParams struct {
	Limit int `validate:"gte=1"`
}

// parseLimit reads ?limit=N. Values above MaxJobLimit are clamped;
// non-integers and values below 1 are rejected.
func parseLimit(r *http.Request) (int, error) {
	limit, err := shared.QueryInt(r, "limit", DefaultJobLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if err := shared.ValidateRequest(&listJobsParams{Limit: limit}); err != nil {
		return 0, fmt.Errorf("%w: limit must be at least 1", ErrInvalidQuery)
	}
	return min(limit, MaxJobLimit), nil
}

// getPathID extracts a required, non-blank path parameter.
func getPathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if id == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidQuery, name)
	}
	return id, nil
}

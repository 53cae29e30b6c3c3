package reflection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
	"github.com/phrazzld/reflections-api/internal/redact"
	"github.com/phrazzld/reflections-api/internal/store"
)

// ErrActivityUnavailable is returned by Apply when the weekly activity could
// not be read for any record. Nothing has been stored, so the batch can be
// applied again later.
var ErrActivityUnavailable = errors.New("weekly activity unavailable")

// Archive kinds of the raw files kept for a job.
const (
	KindOutput = "output"
	KindErrors = "errors"
)

// IngestResult is the outcome of applying a batch's results.
type IngestResult struct {
	SuccessCount int
	ErrorCount   int
	Errors       []domain.RecordError
}

// Clamp bounds the counts so that SuccessCount+ErrorCount <= total.
// It reports whether anything was cut.
func (r IngestResult) Clamp(total int) (IngestResult, bool) {
	if total < 0 {
		total = 0
	}
	if r.SuccessCount+r.ErrorCount <= total {
		return r, false
	}
	if r.SuccessCount > total {
		r.SuccessCount = total
	}
	r.ErrorCount = min(r.ErrorCount, total-r.SuccessCount)
	return r, true
}

// Ingestor downloads a completed batch's results and persists one
// reflection per successful record. It never writes batch jobs.
type Ingestor struct {
	api         BatchAPI
	archiver    Archiver
	activity    store.ActivitySource
	reflections store.ReflectionStore
	logger      *slog.Logger
}

// NewIngestor creates an Ingestor. archiver may be nil.
func NewIngestor(
	api BatchAPI,
	archiver Archiver,
	activity store.ActivitySource,
	reflections store.ReflectionStore,
	logger *slog.Logger,
) *Ingestor {
	if api == nil {
		panic("batch API cannot be nil")
	}
	if activity == nil {
		panic("activity source cannot be nil")
	}
	if reflections == nil {
		panic("reflection store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		api:         api,
		archiver:    archiver,
		activity:    activity,
		reflections: reflections,
		logger:      logger.With(slog.String("component", "ingestor")),
	}
}

// Download fetches and parses the output and error files of a job. Either
// file ID may be empty. Any download or read failure is returned so the
// caller can retry the whole job later.
func (i *Ingestor) Download(ctx context.Context, jobID, outputFileID, errorFileID string) ([]batchapi.Entry, error) {
	var entries []batchapi.Entry

	for _, file := range []struct{ id, kind string }{
		{outputFileID, KindOutput},
		{errorFileID, KindErrors},
	} {
		if file.id == "" {
			continue
		}

		data, err := i.api.Download(ctx, file.id)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s file %s: %w", file.kind, file.id, err)
		}

		i.archive(ctx, jobID, file.kind, data)

		parsed, err := batchapi.ParseOutput(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s file %s: %w", file.kind, file.id, err)
		}
		entries = append(entries, parsed...)
	}

	return entries, nil
}

func (i *Ingestor) archive(ctx context.Context, jobID, kind string, data []byte) {
	if i.archiver == nil {
		return
	}
	key, err := i.archiver.Archive(ctx, jobID, kind, data)
	if err != nil {
		i.logger.WarnContext(ctx, "failed to archive batch file",
			slog.String("job_id", jobID),
			slog.String("kind", kind),
			slog.String("error", redact.Error(err)))
		return
	}
	i.logger.InfoContext(ctx, "archived batch file",
		slog.String("job_id", jobID),
		slog.String("kind", kind),
		slog.String("key", key))
}

// Apply persists a reflection for every successful entry and collects a
// RecordError for every other one. Entries are de-duplicated by custom ID,
// with a success taking precedence over an error. Counts are computed from
// scratch on every call. Apply fails only when ctx is done or when every
// activity read failed (ErrActivityUnavailable).
func (i *Ingestor) Apply(ctx context.Context, entries []batchapi.Entry, now time.Time) (IngestResult, error) {
	result := IngestResult{Errors: []domain.RecordError{}}
	var reads, unavailable int

	for _, entry := range dedupeEntries(entries) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if entry.Failed() {
			result.addError(entry.CustomID, entry.ErrorMessage())
			continue
		}

		read, err := i.applyOne(ctx, entry, now)
		if read {
			reads++
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			if errors.Is(err, ErrActivityUnavailable) {
				unavailable++
			}
			i.logger.WarnContext(ctx, "failed to store reflection",
				slog.String("record_id", entry.CustomID),
				slog.String("error", redact.Error(err)))
			result.addError(entry.CustomID, err.Error())
			continue
		}
		result.SuccessCount++
	}

	if reads > 0 && unavailable == reads {
		return result, fmt.Errorf("%w for all %d records", ErrActivityUnavailable, reads)
	}
	return result, nil
}

// applyOne stores the reflection for one successful entry. read reports
// whether the weekly activity was requested.
func (i *Ingestor) applyOne(ctx context.Context, entry batchapi.Entry, now time.Time) (read bool, err error) {
	userID, week, err := domain.ParseReflectionID(entry.CustomID)
	if err != nil {
		return false, err
	}

	activity, err := i.activity.WeeklyActivity(ctx, userID, week)
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrActivityUnavailable, err)
	}
	if activity == nil {
		activity = &domain.WeeklyActivity{UserID: userID, Week: week}
	}

	record, err := domain.NewReflectionRecord(activity, entry.Content, now)
	if err != nil {
		return true, fmt.Errorf("invalid reflection: %w", err)
	}

	if err := i.reflections.Upsert(ctx, record); err != nil {
		return true, fmt.Errorf("failed to upsert reflection: %w", err)
	}
	return true, nil
}

// Ingest downloads a job's files and applies them.
func (i *Ingestor) Ingest(
	ctx context.Context,
	jobID, outputFileID, errorFileID string,
	now time.Time,
) (IngestResult, error) {
	entries, err := i.Download(ctx, jobID, outputFileID, errorFileID)
	if err != nil {
		return IngestResult{}, err
	}
	return i.Apply(ctx, entries, now)
}

func (r *IngestResult) addError(recordID, message string) {
	r.ErrorCount++
	r.Errors = append(r.Errors, domain.RecordError{
		RecordID: recordID,
		Message:  redact.String(message),
	})
}

// dedupeEntries keeps one entry per custom ID in first-seen order,
// replacing a failed entry with a later successful one.
func dedupeEntries(entries []batchapi.Entry) []batchapi.Entry {
	index := make(map[string]int, len(entries))
	out := make([]batchapi.Entry, 0, len(entries))
	for _, e := range entries {
		pos, seen := index[e.CustomID]
		if !seen {
			index[e.CustomID] = len(out)
			out = append(out, e)
			continue
		}
		if out[pos].Failed() && !e.Failed() {
			out[pos] = e
		}
	}
	return out
}

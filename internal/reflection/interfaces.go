package reflection

import (
	"context"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
)

// BatchAPI is the external batch-processing service.
type BatchAPI interface {
	Submit(ctx context.Context, requests []batchapi.Request, metadata map[string]string) (*batchapi.Batch, error)
	Status(ctx context.Context, batchID string) (*batchapi.Batch, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Archiver keeps a copy of raw output files. It is optional.
type Archiver interface {
	Archive(ctx context.Context, jobID, kind string, data []byte) (string, error)
}

// Notifier reports orchestration events to an operator. Implementations may
// fail; callers wrap them in SafeNotifier so a failure never affects
// orchestration.
type Notifier interface {
	NotifyAttempt(ctx context.Context, pendingCount int, scheduledAt time.Time) error
	NotifySuccess(ctx context.Context, jobID string, counts domain.JobCounts, errs []domain.RecordError) error
	NotifyError(ctx context.Context, subject string, details string) error
	NotifyStillProcessing(ctx context.Context, jobID string, externalStatus string) error
}

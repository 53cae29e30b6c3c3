package reflection

import (
	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
)

// Action is what the poller does with a job after observing its external status.
type Action int

const (
	// ActionNone leaves the job alone; it is already terminal.
	ActionNone Action = iota
	// ActionWait keeps the job non-terminal until a later invocation.
	ActionWait
	// ActionIngest downloads and applies the output, then completes the job.
	ActionIngest
	// ActionFail records a terminal failure without ingesting.
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionIngest:
		return "ingest"
	case ActionFail:
		return "fail"
	default:
		return "none"
	}
}

// Transition is the outcome of Decide: the action and the status the job
// moves to once the action succeeds.
type Transition struct {
	Action Action
	Next   domain.JobStatus
}

// MapRemoteStatus maps an external status onto the job status enum.
// finalizing and cancelling are still-running states; expired is a failure.
// Unknown statuses map to pending.
func MapRemoteStatus(s batchapi.RemoteStatus) domain.JobStatus {
	switch s {
	case batchapi.StatusValidating:
		return domain.JobStatusValidating
	case batchapi.StatusInProgress, batchapi.StatusFinalizing, batchapi.StatusCancelling:
		return domain.JobStatusInProgress
	case batchapi.StatusCompleted:
		return domain.JobStatusCompleted
	case batchapi.StatusFailed, batchapi.StatusExpired:
		return domain.JobStatusFailed
	case batchapi.StatusCancelled:
		return domain.JobStatusCancelled
	default:
		return domain.JobStatusPending
	}
}

// Decide is the pure state transition of the poller. It never advances a job
// to a terminal status while the external batch is still running, and it
// leaves terminal jobs untouched.
func Decide(current domain.JobStatus, remote *batchapi.Batch) Transition {
	if current.IsTerminal() {
		return Transition{Action: ActionNone, Next: current}
	}
	if remote == nil {
		return Transition{Action: ActionWait, Next: current}
	}

	switch remote.Status {
	case batchapi.StatusCompleted:
		if remote.OutputFileID == "" && remote.ErrorFileID == "" {
			return Transition{Action: ActionFail, Next: domain.JobStatusFailed}
		}
		return Transition{Action: ActionIngest, Next: domain.JobStatusCompleted}

	case batchapi.StatusFailed, batchapi.StatusExpired:
		return Transition{Action: ActionFail, Next: domain.JobStatusFailed}

	case batchapi.StatusCancelled:
		return Transition{Action: ActionFail, Next: domain.JobStatusCancelled}

	case batchapi.StatusValidating, batchapi.StatusInProgress,
		batchapi.StatusFinalizing, batchapi.StatusCancelling:
		return Transition{Action: ActionWait, Next: MapRemoteStatus(remote.Status)}

	default:
		return Transition{Action: ActionWait, Next: current}
	}
}

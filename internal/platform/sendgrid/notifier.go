package sendgrid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/redact"
)

// maxListedErrors caps how many per-record errors a success email lists.
const maxListedErrors = 25

// Mailer sends a single email.
type Mailer interface {
	Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error)
}

// Notifier emails the operator at the orchestration's triggering points.
// Attempt and still-processing mails are only sent when Verbose is set.
type Notifier struct {
	mailer  Mailer
	to      []EmailAddress
	prefix  string
	verbose bool
}

// NewNotifier creates an email notifier sending to the given addresses.
func NewNotifier(mailer Mailer, to []string, verbose bool) *Notifier {
	recipients := make([]EmailAddress, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, EmailAddress{Email: addr})
		}
	}
	return &Notifier{
		mailer:  mailer,
		to:      recipients,
		prefix:  "[reflections]",
		verbose: verbose,
	}
}

// NotifyAttempt reports the start of a polling pass.
func (n *Notifier) NotifyAttempt(ctx context.Context, pendingCount int, scheduledAt time.Time) error {
	if !n.verbose {
		return nil
	}
	body := fmt.Sprintf("Polling %d pending batch job(s).\nInvocation time: %s\n",
		pendingCount, scheduledAt.UTC().Format(time.RFC3339))
	return n.send(ctx, fmt.Sprintf("polling %d job(s)", pendingCount), body)
}

// NotifySuccess reports a completed job with its counts and per-record errors.
func (n *Notifier) NotifySuccess(
	ctx context.Context,
	jobID string,
	counts domain.JobCounts,
	errs []domain.RecordError,
) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch job %s completed.\n\n", jobID)
	fmt.Fprintf(&b, "Total requests: %d\nSucceeded: %d\nFailed: %d\n", counts.Total, counts.Success, counts.Error)

	if len(errs) > 0 {
		b.WriteString("\nRecord errors:\n")
		for i, e := range errs {
			if i == maxListedErrors {
				fmt.Fprintf(&b, "... and %d more\n", len(errs)-maxListedErrors)
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", e.RecordID, redact.String(e.Message))
		}
	}

	subject := fmt.Sprintf("batch %s completed (%d/%d)", jobID, counts.Success, counts.Total)
	return n.send(ctx, subject, b.String())
}

// NotifyError reports a failure that needs operator attention.
func (n *Notifier) NotifyError(ctx context.Context, subject string, details string) error {
	return n.send(ctx, "error: "+subject, redact.String(details)+"\n")
}

// NotifyStillProcessing reports a job that is not finished yet.
func (n *Notifier) NotifyStillProcessing(ctx context.Context, jobID string, externalStatus string) error {
	if !n.verbose {
		return nil
	}
	body := fmt.Sprintf("Batch job %s is still processing (external status %q).\n", jobID, externalStatus)
	return n.send(ctx, fmt.Sprintf("batch %s still processing", jobID), body)
}

func (n *Notifier) send(ctx context.Context, subject, text string) error {
	if len(n.to) == 0 {
		return fmt.Errorf("sendgrid notifier: no recipients configured")
	}
	_, err := n.mailer.Send(ctx, SendEmailRequest{
		To:      n.to,
		Subject: n.prefix + " " + subject,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

// Package reflection orchestrates the weekly reflection batch: it resolves
// eligible users, builds and submits one batch per ISO week, polls the batch
// across many short invocations, ingests finished output into reflection
// records and retires old jobs.
//
// No component here waits for the external batch to finish. Every decision
// is taken from the durable job record plus the external status observed in
// the current invocation, so calling Poller.Run again is the only retry.
package reflection

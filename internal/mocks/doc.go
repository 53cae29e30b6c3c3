// Package mocks provides shared test doubles for the reflection pipeline.
//
// Stores are in-memory and enforce the same invariants as the Postgres
// implementations (unique logical keys, the count invariant, upsert
// semantics). The batch API, notifier and archiver mocks record their calls.
//
// Usage:
//
//	jobs := mocks.NewMockJobStore(existingJob)
//	api := mocks.NewMockBatchAPI()
//	api.StatusFn = func(ctx context.Context, id string) (*batchapi.Batch, error) {
//	    return nil, &batchapi.APIError{Op: "status", StatusCode: 503}
//	}
//	notifier := &mocks.MockNotifier{}
//
// Override individual methods with the Fn fields; otherwise the default
// in-memory behavior applies.
package mocks

// Package api serves the read-only administrative HTTP surface: a public
// health check and bearer-token protected listing and detail views of batch
// jobs.
package api

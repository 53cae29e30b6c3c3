// Package batchapi is a client for an OpenAI-compatible Batch API: it uploads
// a JSONL file of requests, creates a batch over it, reports the batch's
// status and downloads the output and error files.
package batchapi

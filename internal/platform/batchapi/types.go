package batchapi

import (
	"strconv"
	"strings"
)

// RemoteStatus is a batch status as reported by the external service.
type RemoteStatus string

// Batch statuses reported by the external service.
const (
	StatusValidating RemoteStatus = "validating"
	StatusFailed     RemoteStatus = "failed"
	StatusInProgress RemoteStatus = "in_progress"
	StatusFinalizing RemoteStatus = "finalizing"
	StatusCompleted  RemoteStatus = "completed"
	StatusExpired    RemoteStatus = "expired"
	StatusCancelling RemoteStatus = "cancelling"
	StatusCancelled  RemoteStatus = "cancelled"
)

// Message is one chat message of a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatBody is the body of a chat-completions request.
type ChatBody struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Messages  []Message `json:"messages"`
}

// Request is one line of the batch input file.
type Request struct {
	CustomID string   `json:"custom_id"`
	Method   string   `json:"method"`
	URL      string   `json:"url"`
	Body     ChatBody `json:"body"`
}

// RequestCounts are the per-request totals the service reports for a batch.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// BatchError is a batch-level error, e.g. a validation failure of the input file.
type BatchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    *int   `json:"line,omitempty"`
}

// Batch is the service's view of a submitted batch.
type Batch struct {
	ID               string            `json:"id"`
	Status           RemoteStatus      `json:"status"`
	Endpoint         string            `json:"endpoint"`
	InputFileID      string            `json:"input_file_id"`
	OutputFileID     string            `json:"output_file_id,omitempty"`
	ErrorFileID      string            `json:"error_file_id,omitempty"`
	CompletionWindow string            `json:"completion_window"`
	CreatedAt        int64             `json:"created_at"`
	RequestCounts    RequestCounts     `json:"request_counts"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Errors           *struct {
		Data []BatchError `json:"data"`
	} `json:"errors,omitempty"`
}

// ErrorSummary joins the batch-level error messages, or returns "".
func (b *Batch) ErrorSummary() string {
	if b == nil || b.Errors == nil || len(b.Errors.Data) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(b.Errors.Data))
	for _, e := range b.Errors.Data {
		if e.Code != "" {
			msgs = append(msgs, e.Code+": "+e.Message)
		} else {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// Entry is one parsed line of an output or error file: the result or the
// error for a single custom ID.
type Entry struct {
	CustomID   string
	StatusCode int
	Content    string
	Err        string
}

// Failed reports whether the entry carries no usable result.
func (e Entry) Failed() bool {
	return e.Err != "" || e.StatusCode < 200 || e.StatusCode >= 300 || strings.TrimSpace(e.Content) == ""
}

// ErrorMessage describes why a failed entry has no result.
func (e Entry) ErrorMessage() string {
	switch {
	case e.Err != "":
		return e.Err
	case e.StatusCode < 200 || e.StatusCode >= 300:
		return "request failed with status " + strconv.Itoa(e.StatusCode)
	case strings.TrimSpace(e.Content) == "":
		return "empty response content"
	default:
		return ""
	}
}

type fileObject struct {
	ID       string `json:"id"`
	Bytes    int    `json:"bytes"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
}

type createBatchRequest struct {
	InputFileID      string            `json:"input_file_id"`
	Endpoint         string            `json:"endpoint"`
	CompletionWindow string            `json:"completion_window"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

package batchapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds the settings of a Client.
type Config struct {
	BaseURL          string
	APIKey           string
	Endpoint         string
	CompletionWindow string
	Timeout          time.Duration
	MaxRetries       int
}

// Client talks to an OpenAI-compatible Batch API.
type Client struct {
	http             *resty.Client
	upload           *resty.Client
	endpoint         string
	completionWindow string
	logger           *slog.Logger
}

// NewClient creates a batch API client. If logger is nil, a default logger
// will be used.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/v1/chat/completions"
	}
	window := cfg.CompletionWindow
	if window == "" {
		window = "24h"
	}

	return &Client{
		http: newRestyClient(cfg, cfg.MaxRetries),
		// Multipart bodies are streamed once, so uploads are never retried in place.
		upload:           newRestyClient(cfg, 0),
		endpoint:         endpoint,
		completionWindow: window,
		logger:           logger.With(slog.String("component", "batch_api")),
	}
}

func newRestyClient(cfg Config, retries int) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	if retries > 0 {
		client.
			SetRetryCount(retries).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				if err != nil {
					return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
				}
				return resp != nil && IsRetryableStatus(resp.StatusCode())
			})
	}

	return client
}

// Submit uploads requests as a JSONL file and creates a batch over it.
func (c *Client) Submit(ctx context.Context, requests []Request, metadata map[string]string) (*Batch, error) {
	if len(requests) == 0 {
		return nil, ErrEmptyBatch
	}

	payload, err := EncodeJSONL(requests)
	if err != nil {
		return nil, &APIError{Op: "submit", StatusCode: 400, Message: "invalid requests", Err: err}
	}

	fileID, err := c.uploadFile(ctx, payload)
	if err != nil {
		return nil, err
	}

	var batch Batch
	var apiErr apiErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(createBatchRequest{
			InputFileID:      fileID,
			Endpoint:         c.endpoint,
			CompletionWindow: c.completionWindow,
			Metadata:         metadata,
		}).
		SetResult(&batch).
		SetError(&apiErr).
		Post("/batches")
	if err := checkResponse("create batch", resp, err, &apiErr); err != nil {
		c.logger.Error("failed to create batch", "input_file_id", fileID, "error", err)
		return nil, err
	}

	if batch.ID == "" {
		return nil, &APIError{Op: "create batch", StatusCode: resp.StatusCode(), Message: "response without batch id"}
	}
	if batch.InputFileID == "" {
		batch.InputFileID = fileID
	}

	c.logger.Info("batch created",
		"batch_id", batch.ID,
		"status", batch.Status,
		"requests", len(requests))
	return &batch, nil
}

func (c *Client) uploadFile(ctx context.Context, payload []byte) (string, error) {
	var file fileObject
	var apiErr apiErrorBody
	resp, err := c.upload.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{"purpose": "batch"}).
		SetMultipartField("file", "batch.jsonl", "application/jsonl", bytes.NewReader(payload)).
		SetResult(&file).
		SetError(&apiErr).
		Post("/files")
	if err := checkResponse("upload file", resp, err, &apiErr); err != nil {
		c.logger.Error("failed to upload batch input", "bytes", len(payload), "error", err)
		return "", err
	}

	if file.ID == "" {
		return "", &APIError{Op: "upload file", StatusCode: resp.StatusCode(), Message: "response without file id"}
	}

	c.logger.Debug("batch input uploaded", "file_id", file.ID, "bytes", len(payload))
	return file.ID, nil
}

// Status fetches the current state of a batch.
func (c *Client) Status(ctx context.Context, batchID string) (*Batch, error) {
	var batch Batch
	var apiErr apiErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&batch).
		SetError(&apiErr).
		Get("/batches/" + url.PathEscape(batchID))
	if err := checkResponse("get batch", resp, err, &apiErr); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Download returns the raw content of a file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, &APIError{Op: "download file", StatusCode: 400, Message: "empty file id"}
	}

	var apiErr apiErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/octet-stream").
		SetError(&apiErr).
		Get("/files/" + url.PathEscape(fileID) + "/content")
	if err := checkResponse("download file", resp, err, &apiErr); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func checkResponse(op string, resp *resty.Response, err error, apiErr *apiErrorBody) error {
	if err != nil {
		return &APIError{Op: op, Message: "request failed", Err: err}
	}

	if resp.IsSuccess() {
		return nil
	}

	msg := strings.TrimSpace(string(resp.Body()))
	if apiErr != nil && apiErr.Error != nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	} else if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = resp.Status()
	}

	return &APIError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
}

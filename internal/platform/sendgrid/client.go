// Package sendgrid sends operator emails through the SendGrid v3 mail API.
package sendgrid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds the settings of a Client.
type Config struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
}

// EmailAddress is a recipient or sender.
type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendEmailRequest is a plain-text email.
type SendEmailRequest struct {
	From    EmailAddress
	To      []EmailAddress
	Subject string
	Text    string
}

// SendEmailResult carries the identifiers SendGrid returns for an accepted message.
type SendEmailResult struct {
	StatusCode int
	MessageID  string
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             EmailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To []EmailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Field   any    `json:"field,omitempty"`
	} `json:"errors"`
}

// HTTPError is a non-2xx answer from SendGrid.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Message)
}

// Client sends mail through SendGrid.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a SendGrid client. If logger is nil, a default logger will be used.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid: missing API key")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == 429 || resp.StatusCode() >= 500
		})

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sendgrid")),
	}, nil
}

// Send delivers a plain-text email. A missing From falls back to the
// configured sender.
func (c *Client) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	if strings.TrimSpace(req.From.Email) == "" {
		req.From = EmailAddress{Email: c.cfg.FromEmail, Name: c.cfg.FromName}
	}
	req.Subject = strings.TrimSpace(req.Subject)

	if req.From.Email == "" {
		return nil, fmt.Errorf("sendgrid: From.Email required")
	}
	if len(req.To) == 0 {
		return nil, fmt.Errorf("sendgrid: To required")
	}
	if req.Subject == "" {
		return nil, fmt.Errorf("sendgrid: Subject required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("sendgrid: Text required")
	}

	wire := mailSendRequest{
		Personalizations: []personalization{{To: req.To}},
		From:             req.From,
		Subject:          req.Subject,
		Content:          []mailContent{{Type: "text/plain", Value: req.Text}},
	}

	var errBody errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(wire).
		SetError(&errBody).
		Post("/v3/mail/send")
	if err != nil {
		return nil, fmt.Errorf("sendgrid: request failed: %w", err)
	}

	if !resp.IsSuccess() {
		msg := strings.TrimSpace(string(resp.Body()))
		if len(errBody.Errors) > 0 && errBody.Errors[0].Message != "" {
			msg = errBody.Errors[0].Message
		}
		if msg == "" {
			msg = "<empty body>"
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode(), Message: msg}
	}

	result := &SendEmailResult{
		StatusCode: resp.StatusCode(),
		MessageID:  strings.TrimSpace(resp.Header().Get("X-Message-Id")),
	}
	c.logger.Debug("email sent", "subject", req.Subject, "message_id", result.MessageID)
	return result, nil
}

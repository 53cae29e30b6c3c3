package batchapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const maxLineSize = 16 * 1024 * 1024

// EncodeJSONL serializes requests as one JSON object per line.
func EncodeJSONL(requests []Request) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, req := range requests {
		if req.CustomID == "" {
			return nil, fmt.Errorf("request without custom_id")
		}
		if err := enc.Encode(req); err != nil {
			return nil, fmt.Errorf("failed to encode request %s: %w", req.CustomID, err)
		}
	}
	return buf.Bytes(), nil
}

type outputLine struct {
	ID       string `json:"id"`
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int             `json:"status_code"`
		RequestID  string          `json:"request_id"`
		Body       json.RawMessage `json:"body"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type completionBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ParseOutput parses an output or error file. A line that cannot be decoded
// becomes an entry whose Err describes the problem, keyed by its custom ID
// when one could be recovered and by "line:N" otherwise. Blank lines are
// skipped.
func ParseOutput(data []byte) ([]Entry, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	entries := []Entry{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		entries = append(entries, parseLine(line, lineNo))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch output: %w", err)
	}

	return entries, nil
}

func parseLine(line []byte, lineNo int) Entry {
	var out outputLine
	if err := json.Unmarshal(line, &out); err != nil {
		return Entry{
			CustomID: fmt.Sprintf("line:%d", lineNo),
			Err:      fmt.Sprintf("malformed output line: %v", err),
		}
	}

	entry := Entry{CustomID: out.CustomID}
	if entry.CustomID == "" {
		entry.CustomID = fmt.Sprintf("line:%d", lineNo)
		entry.Err = "output line without custom_id"
		return entry
	}

	if out.Error != nil && (out.Error.Message != "" || out.Error.Code != "") {
		entry.Err = strings.TrimSpace(out.Error.Code + ": " + out.Error.Message)
		entry.Err = strings.TrimPrefix(entry.Err, ": ")
	}

	if out.Response == nil {
		if entry.Err == "" {
			entry.Err = "missing response"
		}
		return entry
	}

	entry.StatusCode = out.Response.StatusCode
	if len(out.Response.Body) == 0 {
		return entry
	}

	var body completionBody
	if err := json.Unmarshal(out.Response.Body, &body); err != nil {
		if entry.Err == "" {
			entry.Err = fmt.Sprintf("malformed response body: %v", err)
		}
		return entry
	}

	if body.Error != nil && body.Error.Message != "" && entry.Err == "" {
		entry.Err = body.Error.Message
	}
	if len(body.Choices) > 0 {
		entry.Content = body.Choices[0].Message.Content
	}

	return entry
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/pdiddy/idp-client/internal/resilience"
)

// Sentinel kinds carried by *Error. Test with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrTemporary    = errors.New("temporary failure")
	ErrBadRequest   = errors.New("bad request")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Operation  string
	StatusCode int
	Status     string

	// Detail is the backend-provided message, empty when the body carried none.
	Detail string
}

// Error returns the backend detail when present, else a generic message.
func (e *Error) Error() string {
	if e == nil {
		return "api error"
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Status)
}

// Is maps the status code to a sentinel kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrTemporary:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusRequestTimeout
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

// newError reads at most 4 KiB of the response body and extracts the
// FastAPI-style detail field, which is either a string or a list of
// validation entries with a msg field.
func newError(operation string, resp *http.Response) *Error {
	e := &Error{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	e.Detail = parseDetail(body)
	return e
}

func parseDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) == 0 {
		return strings.TrimSpace(payload.Message)
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if field := lastLoc(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}

// Message returns text suitable for showing a user: the backend detail for
// API errors, a connectivity hint for transport errors, or fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "cannot reach the document service: " + err.Error()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "request cancelled"
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// classify decides how the resilience executor treats a failed read.
func classify(err error) resilience.Classification {
	switch {
	case err == nil:
		return resilience.Classification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Classification{}
	case errors.Is(err, ErrTemporary):
		return resilience.Classification{Retryable: true, RecordFailure: true}
	case errors.Is(err, ErrRateLimited):
		return resilience.Classification{Retryable: true, RecordFailure: false}
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return resilience.Classification{}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}
	return resilience.Classification{RecordFailure: true}
}

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies a normalized API failure.
type ErrorKind string

const (
	// ErrValidation covers field-level rejections; shown inline, never fatal.
	ErrValidation ErrorKind = "validation"
	// ErrAuth covers credential and permission rejections.
	ErrAuth ErrorKind = "auth"
	// ErrServer covers status >= 500; the raw body never reaches the user.
	ErrServer ErrorKind = "server"
	// ErrNetwork covers transport-level failures (DNS, refused connections).
	ErrNetwork ErrorKind = "network"
	// ErrShape covers responses that decoded but did not match the expected
	// schema.
	ErrShape ErrorKind = "shape"
)

// Fixed user-facing messages. Server-class failures always map to the generic
// retry message so stack traces and raw HTML never leak to the user.
const (
	msgServerTrouble  = "The server is currently having trouble processing this request. Please try again in a few moments."
	msgConnectionLost = "Communication with the server was lost. Please verify your connection or try again."
)

// Error is a normalized API failure: one human-readable message plus its
// classification. Status is zero for transport-level failures.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// networkError wraps a transport failure (the request never completed) into
// the distinct lost-connection message.
func networkError(err error) *Error {
	return &Error{Kind: ErrNetwork, Message: msgConnectionLost, cause: err}
}

func shapeError(err error) *Error {
	return &Error{Kind: ErrShape, Message: "Unexpected response from the server.", cause: err}
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status >= 500:
		return ErrServer
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	default:
		return ErrValidation
	}
}

// normalize classifies a completed HTTP response. It returns the raw JSON
// body for a structured success, (nil, nil) for a bodyless/non-JSON success
// (no content), and a single *Error for any failure:
//
//   - Status >= 500: the generic server-trouble message, regardless of body
//     content.
//   - JSON failure: message extracted from the conventional error envelope
//     ("detail", then the first non_field_errors entry, then the first value
//     of any other field, then the caller's fallback).
//   - Other non-JSON failures: "<fallback> (Status <code>)".
func normalize(resp *http.Response, fallback string) ([]byte, error) {
	body, readErr := io.ReadAll(resp.Body)
	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if resp.StatusCode < 400 {
		if !isJSON || readErr != nil {
			return nil, nil
		}
		return body, nil
	}

	if resp.StatusCode >= 500 {
		return nil, &Error{Kind: ErrServer, Status: resp.StatusCode, Message: msgServerTrouble}
	}

	if isJSON && readErr == nil {
		if msg, ok := envelopeMessage(body); ok {
			if msg == "" {
				msg = fallback
			}
			return nil, &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
		}
	}

	return nil, &Error{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("%s (Status %d)", fallback, resp.StatusCode),
	}
}

// envelopeMessage extracts a message from a backend error envelope. The
// second return is false when the body is not a JSON object at all.
func envelopeMessage(body []byte) (string, bool) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}

	if msg := stringify(envelope["detail"]); msg != "" {
		return msg, true
	}
	if msg := stringify(envelope["non_field_errors"]); msg != "" {
		return msg, true
	}

	// Any other field, lowest key first so the pick is deterministic.
	keys := make([]string, 0, len(envelope))
	for k := range envelope {
		if k == "detail" || k == "non_field_errors" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msg := stringify(envelope[k]); msg != "" {
			return msg, true
		}
	}

	return "", true
}

// stringify renders an envelope value as a message; list values yield their
// first element.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		if len(val) == 0 {
			return ""
		}
		return stringify(val[0])
	case map[string]any:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

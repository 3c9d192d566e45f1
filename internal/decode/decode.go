// Package decode turns raw provider response bodies into canonical results.
//
// Providers disagree on envelope shape, so decoding is an explicit, ordered list
// of shape candidates. Each candidate either returns a value, reports ErrNoMatch
// (try the next one), or reports a broken invariant (stop: the shape matched but
// the payload is inconsistent). encoding/json is lenient about missing keys, so
// candidates check required keys themselves instead of relying on a successful
// Unmarshal to mean "this shape".
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

// ErrNoMatch reports that a body does not have a candidate's shape.
var ErrNoMatch = errors.New("shape did not match")

// Candidate is one accepted response shape.
type Candidate[T any] struct {
	Name  string
	Parse func(body []byte) (T, error)
}

type invariantError struct {
	err error
}

func (e *invariantError) Error() string { return e.err.Error() }
func (e *invariantError) Unwrap() error { return e.err }

// Invariant marks err as a structural invariant failure. First stops at such
// an error instead of trying the next candidate.
func Invariant(format string, args ...any) error {
	return &invariantError{err: fmt.Errorf(format, args...)}
}

func noMatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNoMatch, fmt.Sprintf(format, args...))
}

// First tries candidates in order and returns the first match. When nothing
// matches, the returned decode error lists every candidate's reason.
func First[T any](body []byte, candidates ...Candidate[T]) (T, error) {
	var zero T
	reasons := make([]string, 0, len(candidates))
	for _, c := range candidates {
		v, err := c.Parse(body)
		if err == nil {
			return v, nil
		}
		var inv *invariantError
		if errors.As(err, &inv) {
			return zero, domain.NewDecodeError(c.Name+" shape", inv.err)
		}
		reasons = append(reasons, c.Name+": "+err.Error())
	}
	return zero, domain.NewDecodeError("no accepted shape matched", errors.New(strings.Join(reasons, "; ")))
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Status returns nil for a success status and an HTTP status error otherwise.
// The message comes from the first matching error envelope; a JSON body without
// a message yields "Unknown error", a non-JSON body is used verbatim.
func Status(status int, body []byte) error {
	if IsSuccess(status) {
		return nil
	}
	return domain.NewHTTPStatusError(status, FailureMessage(body))
}

// FailureMessage extracts the human readable message from a failure body.
func FailureMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.UnknownErrorMessage
	}
	if !json.Valid(trimmed) {
		return string(trimmed)
	}
	msg, err := First(trimmed, errorMessageShapes...)
	if err != nil || msg == "" {
		return domain.UnknownErrorMessage
	}
	return msg
}

var errorMessageShapes = []Candidate[string]{
	{Name: "error.message", Parse: nestedErrorMessage},
	{Name: "message", Parse: topLevelMessage},
	{Name: "error", Parse: stringError},
}

// nestedErrorMessage matches {"error": {"message": "..."}}.
func nestedErrorMessage(body []byte) (string, error) {
	fields, err := objectFields(body)
	if err != nil {
		return "", err
	}
	raw, ok := present(fields, "error")
	if !ok {
		return "", noMatch(`missing "error"`)
	}
	inner, err := objectFields(raw)
	if err != nil {
		return "", err
	}
	return stringField(inner, "message")
}

// topLevelMessage matches {"message": "..."}.
func topLevelMessage(body []byte) (string, error) {
	fields, err := objectFields(body)
	if err != nil {
		return "", err
	}
	return stringField(fields, "message")
}

// stringError matches {"error": "..."}.
func stringError(body []byte) (string, error) {
	fields, err := objectFields(body)
	if err != nil {
		return "", err
	}
	return stringField(fields, "error")
}

// Envelope decodes a two-variant success/error envelope. The success candidate
// is tried first; when it does not match, an {"error":{"message"}} body becomes
// a provider error carrying status. Non-success statuses are handled by Status.
func Envelope[T any](status int, body []byte, ok Candidate[T]) (T, error) {
	var zero T
	if err := Status(status, body); err != nil {
		return zero, err
	}

	v, okErr := ok.Parse(body)
	if okErr == nil {
		return v, nil
	}
	var inv *invariantError
	if errors.As(okErr, &inv) {
		return zero, domain.NewDecodeError(ok.Name+" shape", inv.err)
	}

	msg, errErr := nestedErrorMessage(body)
	if errErr == nil {
		return zero, domain.NewProviderError(status, msg)
	}

	return zero, domain.NewDecodeError("response matched neither success nor error envelope",
		fmt.Errorf("%s: %v; error: %v", ok.Name, okErr, errErr))
}

// CheckCount enforces that a decoded list has exactly want entries.
func CheckCount(what string, got, want int) error {
	if got != want {
		return domain.NewDecodeError("response data length does not match input length",
			fmt.Errorf("%s: got %d, want %d", what, got, want))
	}
	return nil
}

func objectFields(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, noMatch("not a JSON object: %v", err)
	}
	if fields == nil {
		return nil, noMatch("not a JSON object: null")
	}
	return fields, nil
}

// present returns the raw value of key when it exists and is not null.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := present(fields, key)
	if !ok {
		return "", noMatch("missing %q", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", noMatch("%q is not a string", key)
	}
	return s, nil
}

func decodeField[T any](fields map[string]json.RawMessage, key string) (T, error) {
	var v T
	raw, ok := present(fields, key)
	if !ok {
		return v, noMatch("missing %q", key)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, noMatch("%q: %v", key, err)
	}
	return v, nil
}

// Object returns a candidate matching any JSON object that carries every
// required key with a non-null value. The whole body is decoded into T.
func Object[T any](name string, required ...string) Candidate[T] {
	return Candidate[T]{Name: name, Parse: func(body []byte) (T, error) {
		var v T
		fields, err := objectFields(body)
		if err != nil {
			return v, err
		}
		for _, key := range required {
			if _, ok := present(fields, key); !ok {
				return v, noMatch("missing %q", key)
			}
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return v, Invariant("%s: %v", name, err)
		}
		return v, nil
	}}
}

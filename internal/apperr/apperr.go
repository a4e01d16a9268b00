// Package apperr defines the gateway's error taxonomy.
//
// Every failure is a *Error tagged with a Kind, so callers switch on
// KindOf(err) instead of matching error types or message text.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that did not come from this package.
	KindUnknown Kind = iota
	// KindConfiguration aborts startup (missing credentials).
	KindConfiguration
	// KindNotInitialized means an operation ran without an upstream client.
	KindNotInitialized
	// KindInvalidArgument is a caller-supplied value outside the contract.
	KindInvalidArgument
	// KindNotFound means the requested entity does not exist upstream.
	KindNotFound
	// KindUpstream means the upstream answered with a non-2xx status.
	KindUpstream
	// KindTransport covers network failures, timeouts and malformed responses.
	KindTransport
	// KindSchema means an upstream payload lacked a required field.
	KindSchema
)

var kindNames = map[Kind]string{
	KindUnknown:         "Unknown",
	KindConfiguration:   "ConfigurationError",
	KindNotInitialized:  "NotInitialized",
	KindInvalidArgument: "InvalidArgument",
	KindNotFound:        "NotFound",
	KindUpstream:        "UpstreamError",
	KindTransport:       "TransportError",
	KindSchema:          "SchemaError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single error type produced by the gateway.
type Error struct {
	Kind Kind
	// Resource and ID name the entity for NotFound and SchemaError.
	Resource string
	ID       string
	// Status and Body are the upstream response for UpstreamError.
	Status int
	Body   string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindNotFound:
		if e.Resource != "" {
			fmt.Fprintf(&b, "%s %s not found", e.Resource, e.ID)
		} else {
			b.WriteString("not found")
		}
	case KindUpstream:
		fmt.Fprintf(&b, "API error: %d - %s", e.Status, e.Body)
	default:
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether err may succeed on an identical retry.
// Only transport failures qualify, and only for read operations.
func Retryable(err error) bool {
	return KindOf(err) == KindTransport
}

func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func NotInitialized(what string) *Error {
	return &Error{Kind: KindNotInitialized, Msg: what + " not initialized"}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(resource string, id any) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, ID: fmt.Sprint(id)}
}

func Upstream(status int, body string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Body: body}
}

func Transport(msg string, cause error) *Error {
	return &Error{Kind: KindTransport, Msg: msg, Err: cause}
}

func Schema(resource, field string) *Error {
	return &Error{Kind: KindSchema, Resource: resource, Msg: fmt.Sprintf("%s payload missing required field %q", resource, field)}
}

// Classify maps a raw upstream outcome onto the taxonomy. A non-nil cause is
// a transport failure regardless of status; otherwise 404 is NotFound and
// any other non-2xx status is UpstreamError with the body kept verbatim.
// Classify returns nil for a 2xx status with no cause.
func Classify(status int, body []byte, cause error) *Error {
	if cause != nil {
		var e *Error
		if errors.As(cause, &e) {
			return e
		}
		if errors.Is(cause, context.DeadlineExceeded) {
			return Transport("upstream request timed out", cause)
		}
		return Transport("upstream request failed", cause)
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: status, Body: string(body)}
	default:
		return Upstream(status, string(body))
	}
}

// ForResource names the entity on a NotFound error so the message reads
// "service order 42 not found". Other errors pass through unchanged.
func ForResource(err error, resource string, id any) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindNotFound {
		nf := NotFound(resource, id)
		nf.Status, nf.Body = e.Status, e.Body
		return nf
	}
	return err
}

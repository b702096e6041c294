package audit

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

// Failure kinds. Only KindFeedUnavailable aborts a run; the rest are scoped
// to the URL being audited.
const (
	KindFeedUnavailable   Kind = "FEED_UNAVAILABLE"
	KindNavigationTimeout Kind = "NAVIGATION_TIMEOUT"
	KindNavigation        Kind = "NAVIGATION_FAILED"
	KindSessionLaunch     Kind = "SESSION_LAUNCH_FAILED"
	KindAuditEngine       Kind = "AUDIT_ENGINE_FAILED"
	KindEvaluation        Kind = "EVALUATION_FAILED"
	KindScreenshot        Kind = "SCREENSHOT_FAILED"
	KindPersist           Kind = "PERSIST_FAILED"
)

// Sentinels for errors.Is matching on Kind alone.
var (
	ErrFeedUnavailable   = &Error{Kind: KindFeedUnavailable}
	ErrNavigationTimeout = &Error{Kind: KindNavigationTimeout}
	ErrNavigation        = &Error{Kind: KindNavigation}
	ErrSessionLaunch     = &Error{Kind: KindSessionLaunch}
	ErrAuditEngine       = &Error{Kind: KindAuditEngine}
	ErrEvaluation        = &Error{Kind: KindEvaluation}
	ErrScreenshot        = &Error{Kind: KindScreenshot}
	ErrPersist           = &Error{Kind: KindPersist}
)

// Error is a classified pipeline error carrying the offending URL.
type Error struct {
	Kind    Kind
	URL     string
	Message string
	Err     error
}

// NewError builds a classified error.
func NewError(kind Kind, url, message string, err error) *Error {
	return &Error{Kind: kind, URL: url, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the Kind from err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

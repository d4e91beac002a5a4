// Package deploy provisions placements and deploys creative combinations to the
// advertising platform, isolating failures per combination.
package deploy

import (
	"errors"
	"fmt"

	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

// Kind classifies a deployment failure.
type Kind string

const (
	// KindRequestInvalid rejects the whole request before any external call.
	KindRequestInvalid Kind = "request_invalid"
	// KindForbidden means the caller may not deploy on the placement's account.
	KindForbidden Kind = "forbidden"
	// KindPrerequisiteUnavailable aborts the batch: the placement or page could not be resolved.
	KindPrerequisiteUnavailable Kind = "prerequisite_unavailable"
	KindValidationFailed        Kind = "validation_failed"
	KindUpstreamRejected        Kind = "upstream_rejected"
	KindVerificationFailed      Kind = "verification_failed"
	KindInternal                Kind = "internal"
)

// RequestLevel reports whether failures of this kind escalate beyond a single combination.
func (k Kind) RequestLevel() bool {
	switch k {
	case KindRequestInvalid, KindForbidden, KindPrerequisiteUnavailable:
		return true
	}
	return false
}

// Error is a classified deployment failure. Code, Type and Details carry the platform's
// structured rejection when there is one.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Type    string
	Details string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// upstreamError wraps a platform call failure, keeping the platform's code, type and trace id.
func upstreamError(kind Kind, err error, action string) *Error {
	e := &Error{Kind: kind, Err: err}
	if pe, ok := platform.AsError(err); ok {
		e.Message = fmt.Sprintf("%s: %s", action, pe.Message)
		e.Code = pe.Code
		e.Type = pe.Type
		if pe.TraceID != "" {
			e.Details = "fbtrace_id=" + pe.TraceID
		}
		return e
	}
	e.Message = fmt.Sprintf("%s: %v", action, err)
	return e
}

// asError converts any error into an *Error, defaulting to KindInternal.
func asError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return asError(err).Kind
}

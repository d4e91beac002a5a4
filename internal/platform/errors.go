package platform

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a structured rejection returned by the advertising platform.
type Error struct {
	StatusCode int
	Code       int
	Subcode    int
	Type       string
	Message    string
	TraceID    string
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("platform error %d (%s): %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// Graph API codes for objects that do not exist or cannot be loaded.
const (
	codeUnsupportedGet = 100
	subcodeMissing     = 33
)

// IsNotFound reports whether err means the referenced object is gone or inaccessible.
func IsNotFound(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	if pe.StatusCode == http.StatusNotFound {
		return true
	}
	return pe.Code == codeUnsupportedGet && pe.Subcode == subcodeMissing
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

package backend

import (
	"errors"
	"fmt"
)

// ErrorDomain is reported to the host alongside every rejected call.
const ErrorDomain = "TrackPlayerBridge"

// Error codes reported to the host.
const (
	CodeInvalidPayload = "E_INVALID_PAYLOAD"
	CodeInvalidURL     = "E_INVALID_URL"
	CodeUnavailable    = "E_UNAVAILABLE"
	CodeInternal       = "E_INTERNAL"
)

var (
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidMediaURL = errors.New("invalid media url")
	ErrMissingURI      = errors.New("media url object has no uri")
	ErrShutDown        = errors.New("bridge is shut down")
)

// BridgeError is the rejection reported to the host: a code, a message
// and a domain.
type BridgeError struct {
	Code    string
	Message string
	Domain  string
	Err     error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// AsBridgeError classifies err into a BridgeError. nil stays nil.
func AsBridgeError(err error) *BridgeError {
	if err == nil {
		return nil
	}
	var be *BridgeError
	if errors.As(err, &be) {
		return be
	}
	code := CodeInternal
	switch {
	case errors.Is(err, ErrInvalidMediaURL), errors.Is(err, ErrMissingURI):
		code = CodeInvalidURL
	case errors.Is(err, ErrInvalidPayload):
		code = CodeInvalidPayload
	case errors.Is(err, ErrShutDown):
		code = CodeUnavailable
	}
	return &BridgeError{Code: code, Message: err.Error(), Domain: ErrorDomain, Err: err}
}

// ErrorCode and ErrorDomain let transports report the rejection
// without depending on this package.
func (e *BridgeError) ErrorCode() string { return e.Code }

func (e *BridgeError) ErrorDomain() string { return e.Domain }

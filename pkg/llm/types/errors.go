package types

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// ErrorKind is the provider-independent failure category.
type ErrorKind string

const (
	ErrAuthentication ErrorKind = "authentication"
	ErrRateLimited    ErrorKind = "rate_limited"
	ErrTransient      ErrorKind = "transient"
	ErrBadRequest     ErrorKind = "bad_request"
	ErrNetwork        ErrorKind = "network"
	ErrUnknown        ErrorKind = "unknown"
)

// Retryable reports whether a call failing with this kind may succeed later.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrRateLimited, ErrTransient, ErrNetwork:
		return true
	default:
		return false
	}
}

// Error is the uniform failure returned by every provider call.
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Attempts   int
	// KeyEnvVar names the credential variable for authentication failures.
	KeyEnvVar string
	cause     error
}

// NewError builds an Error from a provider's original failure.
func NewError(kind ErrorKind, provider string, statusCode int, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Provider: provider, StatusCode: statusCode, Message: msg, cause: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Hint returns remediation guidance for the operator.
func (e *Error) Hint() string {
	switch e.Kind {
	case ErrAuthentication:
		key := e.KeyEnvVar
		if key == "" {
			key = "the provider API key"
		}
		return fmt.Sprintf("Authentication with %s failed. Set %s to a valid key (in your shell, ~/.config/skillet/.env or the project .env).", e.Provider, key)
	case ErrRateLimited:
		return fmt.Sprintf("%s is rate limiting requests. Wait a minute before retrying, or lower the request volume.", e.Provider)
	case ErrBadRequest:
		return "The request was rejected. Likely causes:\n" +
			"  1. the model name is wrong or no longer available (check 'skillet config get model')\n" +
			"  2. the prompt is too long for the model's context window\n" +
			"  3. a request parameter such as max_tokens is out of range"
	case ErrNetwork:
		return fmt.Sprintf("Could not reach %s. Check your internet connection and any proxy or firewall settings.", e.Provider)
	case ErrTransient:
		return fmt.Sprintf("%s reported a server-side error. Try again shortly.", e.Provider)
	default:
		return ""
	}
}

// IsRetryable reports whether err is an *Error of a retryable kind.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Retryable()
	}
	return false
}

// IsNotFound reports whether the provider answered with HTTP 404.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// KindForStatus maps an HTTP status code onto the taxonomy.
func KindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthentication
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout || code >= 500:
		return ErrTransient
	case code >= 400:
		return ErrBadRequest
	default:
		return ErrUnknown
	}
}

// Classify turns an arbitrary failure into an *Error. Existing *Error values
// and context cancellation pass through unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isNetworkError(err) {
		return NewError(ErrNetwork, provider, 0, err)
	}
	return NewError(ErrUnknown, provider, 0, err)
}

func isNetworkError(err error) bool {
	var netErr net.Error
	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr), errors.As(err, &netErr), errors.As(err, &urlErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "no such host", "i/o timeout", "tls handshake"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

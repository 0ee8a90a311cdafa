package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// TransientError marks an upstream failure worth another attempt.
type TransientError struct {
	Err        error
	StatusCode int
	// RetryAfter is the upstream's own backoff hint, if it sent one.
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// Classify wraps err as a *TransientError when statusCode is retryable and
// returns it unchanged otherwise. A zero status leaves the decision to
// IsTransient's network checks.
func Classify(err error, statusCode int, retryAfter time.Duration) error {
	if err == nil || !IsTransientHTTPStatus(statusCode) {
		return err
	}
	return &TransientError{Err: err, StatusCode: statusCode, RetryAfter: retryAfter}
}

// IsRateLimit reports whether err carries a 429 signal.
func IsRateLimit(err error) bool {
	var te *TransientError
	return errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests
}

// RetryAfter returns the upstream backoff hint carried by err, or 0.
func RetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

var (
	transientErrnos = []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED}

	// Substrings of errors that lost their type on the way up, e.g. from
	// the SDK or chromedp.
	transientMessages = []string{
		"connection reset by peer",
		"broken pipe",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"unexpected eof",
	}
)

// IsTransient reports whether err is a *TransientError or a network
// failure that a retry may get past.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an upstream status is retryable.
// 529 is Anthropic's overloaded status.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, 529:
		return true
	}
	return statusCode >= 500 && statusCode != http.StatusNotImplemented
}

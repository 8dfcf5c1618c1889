package servicecontrol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// StatusError is returned when the service answers outside the 2xx range.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.URL, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsNotFound returns true if err is a 404 from the service.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 404
}

// ErrorKind names a class of connectivity failure.
type ErrorKind string

const (
	KindNetwork             ErrorKind = "NETWORK_ERROR"
	KindNameNotResolved     ErrorKind = "ERR_NAME_NOT_RESOLVED"
	KindConnectionRefused   ErrorKind = "CONNECTION_REFUSED"
	KindConnectionTimeout   ErrorKind = "CONNECTION_TIMEOUT"
	KindNetworkConnectivity ErrorKind = "NETWORK_CONNECTIVITY"
	KindNoResponse          ErrorKind = "NO_RESPONSE"
)

// HTTPErrorKind returns the kind for a non-2xx status code.
func HTTPErrorKind(code int) ErrorKind {
	return ErrorKind(fmt.Sprintf("HTTP_ERROR_%d", code))
}

// Classify maps err onto an ErrorKind. A nil error has no kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var se *StatusError
	if errors.As(err, &se) {
		return HTTPErrorKind(se.StatusCode)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindConnectionTimeout
		}
		return KindNameNotResolved
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ETIMEDOUT) {
		return KindConnectionTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindConnectionTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetworkConnectivity
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNoResponse
	}

	return KindNetwork
}

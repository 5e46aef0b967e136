package protect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Common errors. Callers classify failures with errors.Is.
var (
	// ErrUnauthorized means the NVR rejected the credentials or the session
	// expired. Never retried.
	ErrUnauthorized = errors.New("protect: unauthorized")

	// ErrTransient marks a failure worth retrying: a timeout or a
	// server-side error.
	ErrTransient = errors.New("protect: transient error")

	// ErrRejected marks a permanent client-side rejection (bad camera ID,
	// unsupported request). Not retried.
	ErrRejected = errors.New("protect: request rejected")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classifyStatus maps a non-2xx response status to the error taxonomy.
func classifyStatus(code int, status string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, status)
	case code >= 500:
		return fmt.Errorf("%w: %s", ErrTransient, status)
	default:
		return fmt.Errorf("%w: %s", ErrRejected, status)
	}
}

// classifyTransport maps a transport-level failure to the error taxonomy.
// Timeouts and connection failures are transient; a cancelled context is not.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	// Connection resets and refusals on a flaky appliance link are worth
	// another attempt.
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

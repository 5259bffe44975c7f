// Package offline classifies connectivity failures (DNS, timeout,
// refused connections) so callers can degrade to a concise "offline"
// signal instead of surfacing a stack trace.
package offline

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrOffline is the sentinel wrapped into errors that were classified as
// connectivity failures.
var ErrOffline = errors.New("no wifi")

// Textual fallbacks for platforms and wrappers whose error types we do
// not match directly.
var indicators = []string{
	"no wifi",
	"nodename nor servname provided",
	"name or service not known",
	"temporary failure in name resolution",
	"no such host",
	"connection refused",
	"no route to host",
	"network is unreachable",
	"i/o timeout",
	"timed out",
	"dns",
}

// Indicator returns the concrete trigger that classified err as a
// connectivity failure, or "" when err does not look like one. It walks
// the whole wrap chain.
func Indicator(err error) string {
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if ind := indicatorOne(cur); ind != "" {
			return ind
		}
	}
	return ""
}

// IsOffline reports whether err looks like a DNS/timeout/connection
// failure rather than a protocol or application error.
func IsOffline(err error) bool {
	return err != nil && Indicator(err) != ""
}

func indicatorOne(err error) string {
	if errors.Is(err, ErrOffline) {
		return ErrOffline.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline exceeded"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns: " + dnsErr.Err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.ENETDOWN} {
		if errors.Is(err, errno) {
			return errno.Error()
		}
	}

	text := strings.ToLower(err.Error())
	for _, ind := range indicators {
		if strings.Contains(text, ind) {
			return ind
		}
	}
	return ""
}

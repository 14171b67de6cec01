package llmbackend

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// isConnectionError reports whether err is a transport-level failure
// (unreachable host, refused connection, timeout) rather than an API
// response the backend produced.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "dial tcp")
}

// looksLikeModelNotFound reports whether an error message indicates an
// unknown or unpulled model, for SDKs that do not surface a typed status.
func looksLikeModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

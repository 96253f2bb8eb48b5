package provider

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"
)

// classifyError maps a transport error to a short label for metrics.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}

	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case 401, 403: //nolint:mnd
			return "auth"
		case 429: //nolint:mnd
			return "rate_limit"
		}
		return "http"
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return "connection"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return "rpc"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden"):
		return "auth"
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "websocket") || strings.Contains(errStr, "connection"):
		return "connection"
	}

	return "other"
}

package chain

import (
	"context"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// JSON-RPC error codes that signal a provider-side capacity problem rather than
// a verdict on the request.
var unavailableRPCCodes = map[int]struct{}{
	-32005: {}, // limit exceeded
	-32603: {}, // internal error
}

// classify turns a raw provider error into a gwerr kind. parent is the
// caller's context: if it is done, the caller's own cancellation wins.
func classify(parent context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	if parent.Err() != nil {
		return errors.Wrap(parent.Err(), op)
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests {
			return gwerr.Wrap(err, gwerr.KindProviderUnavailable, op, "")
		}
		return gwerr.Wrap(err, gwerr.KindProviderRejected, op, "")
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if _, ok := unavailableRPCCodes[rpcErr.ErrorCode()]; ok {
			return gwerr.Wrap(err, gwerr.KindProviderUnavailable, op, "")
		}
		return gwerr.Wrap(err, gwerr.KindProviderRejected, op, "")
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return gwerr.Wrap(err, gwerr.KindProviderUnavailable, op, "")
	}

	// Transport failures without a typed error (EOF, reset, dial) are transient.
	return gwerr.Wrap(err, gwerr.KindProviderUnavailable, op, "")
}

package gateway

import "errors"

var (
	// ErrGatewayUnavailable covers transport failures and timeouts. It is
	// deliberately distinct from envelope integrity errors: callers must not
	// infer payment failure from it.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrInvalidReturnURL is returned when a return/callback URL carries a
	// query string, which the gateway contract forbids.
	ErrInvalidReturnURL = errors.New("return url must not contain query parameters")
)

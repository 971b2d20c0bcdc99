package maap

import "github.com/pkg/errors"

// Sentinel error kinds of the engine. Asynchronous failures — a range
// unable to find a free subinterval, or a yield forced by a conflict — are
// reported via Notify records instead and never returned directly.
var (
	// ErrInvalidArgument is returned (wrapped) by HandleTimer on an
	// uninitialized engine. Reserve and Release report a bad length, an
	// unknown range id or an uninitialized engine through their -1 return
	// value instead.
	ErrInvalidArgument = errors.New("maap: invalid argument")

	// ErrPoolExhausted names the "no free subinterval of the requested
	// length" condition. No engine function returns it: callers observe
	// that condition only via an Acquiring-failed(out_of_range)
	// notification.
	ErrPoolExhausted = errors.New("maap: pool exhausted")
)

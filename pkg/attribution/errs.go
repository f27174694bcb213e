package attribution

import "errors"

var (
	// ErrInsufficientData indicates fewer than two power samples, so no window exists.
	ErrInsufficientData = errors.New("attribution: need at least two power samples")

	// ErrUnknownPolicy indicates a policy name that ParsePolicy does not know.
	ErrUnknownPolicy = errors.New("attribution: unknown overlap policy")
)

package records

import "errors"

// Authorization failures are classified into three user-facing categories so
// the caller can render a specific message and re-enable input without retry.
var (
	ErrInvalidCredentials = errors.New("invalid access token")
	ErrConnectivity       = errors.New("unable to connect to record store")
	ErrUnknown            = errors.New("record store request failed")
)

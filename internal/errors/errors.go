package errors

import "errors"

var ErrUnauthorized = errors.New("credential is not accepted")
var ErrForbidden = errors.New("operation is forbidden for credential")

// ErrAuthFailed is returned when a guest identity could not be acquired
var ErrAuthFailed = errors.New("guest authentication failed")

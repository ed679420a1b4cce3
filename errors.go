package hue

import "github.com/lexfrei/go-hue/api"

// Sentinel errors, re-exported from package api for convenience.
var (
	ErrTimeout            = api.ErrTimeout
	ErrConnectionFailed   = api.ErrConnectionFailed
	ErrAuthRequired       = api.ErrAuthRequired
	ErrUnpaired           = api.ErrUnpaired
	ErrInvalidated        = api.ErrInvalidated
	ErrMalformedResponse  = api.ErrMalformedResponse
	ErrPairingTimeout     = api.ErrPairingTimeout
	ErrNetworkUnavailable = api.ErrNetworkUnavailable
	ErrInvalidRequest     = api.ErrInvalidRequest
)

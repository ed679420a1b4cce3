package api

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Match them with errors.Is.
var (
	// ErrTimeout matches transport errors caused by an attempt deadline.
	ErrTimeout = errors.New("bridge request timed out")

	// ErrConnectionFailed matches transport errors caused by an unreachable bridge.
	ErrConnectionFailed = errors.New("bridge connection failed")

	// ErrAuthRequired matches every AuthError.
	ErrAuthRequired = errors.New("bridge authentication required")

	// ErrUnpaired matches AuthErrors for bridges without a credential.
	ErrUnpaired = errors.New("bridge is not paired")

	// ErrInvalidated matches AuthErrors for credentials the bridge rejected.
	ErrInvalidated = errors.New("bridge credential was invalidated")

	// ErrMalformedResponse matches every ProtocolError.
	ErrMalformedResponse = errors.New("malformed bridge response")

	// ErrPairingTimeout is returned when the link button was not pressed in time.
	ErrPairingTimeout = errors.New("pairing timed out waiting for link button")

	// ErrNetworkUnavailable is returned when discovery cannot use the network.
	ErrNetworkUnavailable = errors.New("network unavailable for discovery")

	// ErrInvalidRequest is returned by encoders for values the bridge would reject.
	ErrInvalidRequest = errors.New("invalid bridge request")
)

// TransportErrorKind classifies transport failures.
type TransportErrorKind int

// Transport error kinds.
const (
	TransportTimeout TransportErrorKind = iota + 1
	TransportConnectionFailed
)

func (k TransportErrorKind) String() string {
	switch k {
	case TransportTimeout:
		return "timeout"
	case TransportConnectionFailed:
		return "connection failed"
	default:
		return "unknown"
	}
}

// TransportError is returned when a request could not reach the bridge.
type TransportError struct {
	Kind     TransportErrorKind
	Op       string
	Address  string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Address, e.Kind)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTimeout or ErrConnectionFailed according to Kind.
func (e *TransportError) Is(target error) bool {
	switch e.Kind {
	case TransportTimeout:
		return target == ErrTimeout
	case TransportConnectionFailed:
		return target == ErrConnectionFailed
	default:
		return false
	}
}

// AuthErrorKind classifies authentication failures.
type AuthErrorKind int

// Auth error kinds.
const (
	AuthUnpaired AuthErrorKind = iota + 1
	AuthInvalidated
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthUnpaired:
		return "unpaired"
	case AuthInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// AuthError is returned when no valid credential exists for a bridge.
type AuthError struct {
	Kind     AuthErrorKind
	BridgeID string
	Err      error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("bridge %s: authentication %s", e.BridgeID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches ErrAuthRequired and the sentinel for Kind.
func (e *AuthError) Is(target error) bool {
	if target == ErrAuthRequired {
		return true
	}
	switch e.Kind {
	case AuthUnpaired:
		return target == ErrUnpaired
	case AuthInvalidated:
		return target == ErrInvalidated
	default:
		return false
	}
}

// ProtocolError is returned when a reply cannot be mapped to the expected shape.
type ProtocolError struct {
	Op         string
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": malformed response")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is matches ErrMalformedResponse.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// Error types reported by the bridge in {"error":{"type":N}} objects.
const (
	ErrorTypeUnauthorizedUser       = 1
	ErrorTypeInvalidJSON            = 2
	ErrorTypeResourceNotAvailable   = 3
	ErrorTypeMethodNotAvailable     = 4
	ErrorTypeMissingParameters      = 5
	ErrorTypeParameterNotAvailable  = 6
	ErrorTypeInvalidValue           = 7
	ErrorTypeParameterNotModifiable = 8
	ErrorTypeTooManyItems           = 11
	ErrorTypePortalConnectionNeeded = 12
	ErrorTypeLinkButtonNotPressed   = 101
	ErrorTypeDeviceIsOff            = 201
	ErrorTypeGroupTableFull         = 301
	ErrorTypeSceneBufferFull        = 402
	ErrorTypeInternalError          = 901
)

// APIError is an error object reported by the bridge.
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("bridge error %d at %s: %s", e.Type, e.Address, e.Description)
	}
	return fmt.Sprintf("bridge error %d: %s", e.Type, e.Description)
}

// IsUnauthorized reports whether err carries a bridge "unauthorized user" error.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeUnauthorizedUser
}

// IsLinkButtonNotPressed reports whether err carries a bridge "link button not pressed" error.
func IsLinkButtonNotPressed(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeLinkButtonNotPressed
}

// PartialFailure reports that some items of a batch failed.
type PartialFailure struct {
	Outcomes []ItemOutcome
}

func (e *PartialFailure) Error() string {
	failed := 0
	var first *APIError
	for i := range e.Outcomes {
		if e.Outcomes[i].Error != nil {
			if first == nil {
				first = e.Outcomes[i].Error
			}
			failed++
		}
	}

	if first == nil {
		return fmt.Sprintf("%d of %d items failed", failed, len(e.Outcomes))
	}

	return fmt.Sprintf("%d of %d items failed, first: %s", failed, len(e.Outcomes), first.Description)
}

package api_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-hue/api"
)

func TestTransportErrorIs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		kind       api.TransportErrorKind
		timeout    bool
		connection bool
	}{
		{name: "timeout", kind: api.TransportTimeout, timeout: true},
		{name: "connection failed", kind: api.TransportConnectionFailed, connection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := errors.Wrap(&api.TransportError{
				Kind:     tt.kind,
				Op:       "GET",
				Address:  "192.168.1.2",
				Attempts: 3,
				Err:      context.DeadlineExceeded,
			}, "set light state")

			assert.Equal(t, tt.timeout, errors.Is(err, api.ErrTimeout))
			assert.Equal(t, tt.connection, errors.Is(err, api.ErrConnectionFailed))
			assert.False(t, errors.Is(err, api.ErrAuthRequired))

			var transportErr *api.TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, 3, transportErr.Attempts)
			assert.Contains(t, err.Error(), "after 3 attempts")
		})
	}
}

func TestAuthErrorIs(t *testing.T) {
	t.Parallel()

	unpaired := &api.AuthError{Kind: api.AuthUnpaired, BridgeID: "001788fffe000001"}
	invalidated := &api.AuthError{Kind: api.AuthInvalidated, BridgeID: "001788fffe000001"}

	assert.ErrorIs(t, unpaired, api.ErrAuthRequired)
	assert.ErrorIs(t, unpaired, api.ErrUnpaired)
	assert.NotErrorIs(t, unpaired, api.ErrInvalidated)

	assert.ErrorIs(t, invalidated, api.ErrAuthRequired)
	assert.ErrorIs(t, invalidated, api.ErrInvalidated)
	assert.NotErrorIs(t, invalidated, api.ErrUnpaired)

	assert.Equal(t, "bridge 001788fffe000001: authentication invalidated", invalidated.Error())
}

func TestProtocolError(t *testing.T) {
	t.Parallel()

	err := &api.ProtocolError{Op: "decode batch", StatusCode: 200, Reason: "item 0 has neither success nor error"}

	assert.ErrorIs(t, err, api.ErrMalformedResponse)
	assert.Equal(t, "decode batch: malformed response (status 200): item 0 has neither success nor error", err.Error())
}

func TestAPIErrorHelpers(t *testing.T) {
	t.Parallel()

	unauthorized := errors.Wrap(&api.APIError{
		Type:        api.ErrorTypeUnauthorizedUser,
		Address:     "/lights",
		Description: "unauthorized user",
	}, "list lights")
	linkButton := &api.APIError{Type: api.ErrorTypeLinkButtonNotPressed, Description: "link button not pressed"}

	assert.True(t, api.IsUnauthorized(unauthorized))
	assert.False(t, api.IsLinkButtonNotPressed(unauthorized))
	assert.True(t, api.IsLinkButtonNotPressed(linkButton))
	assert.False(t, api.IsUnauthorized(errors.New("other")))
	assert.Equal(t, "bridge error 101: link button not pressed", linkButton.Error())
}

package hue

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/codec"
	"github.com/lexfrei/go-hue/internal/response"
	"github.com/lexfrei/go-hue/transport"
)

// registrar sends pairing requests for the session manager.
type registrar struct {
	transport *transport.Transport
}

func (r *registrar) Register(ctx context.Context, bridge api.Bridge, deviceType string, generateClientKey bool) (*api.Registration, error) {
	req, err := codec.RegistrationRequest(deviceType, generateClientKey)
	if err != nil {
		return nil, errors.Wrap(err, "register application")
	}

	resp, err := r.transport.Send(ctx, bridge, "", req)

	//nolint:wrapcheck // response.Handle wraps errors internally
	return response.Handle(resp, err, "register application", codec.DecodeRegistration)
}

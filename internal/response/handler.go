// Package response provides generic handlers for bridge replies to eliminate boilerplate.
package response

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/codec"
)

// Decoder turns a reply body into a typed value.
type Decoder[T any] func(body []byte) (T, error)

// Unauthorized reports whether the bridge refused the request at HTTP level.
func Unauthorized(resp *api.Response) bool {
	return resp != nil &&
		(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden)
}

// Handle is a generic handler for bridge replies that carry data.
// It passes transport errors through with op as context, rejects non-2xx
// statuses as protocol errors and decodes the body.
//
// Usage:
//
//	resp, err := c.transport.Send(ctx, bridge, key, codec.LightsRequest())
//	return response.Handle(resp, err, "get lights", codec.DecodeLights)
func Handle[T any](resp *api.Response, err error, op string, decode Decoder[T]) (T, error) {
	var zero T

	if err != nil {
		return zero, errors.Wrap(err, op)
	}

	if err := CheckStatus(resp, op); err != nil {
		return zero, err
	}

	value, err := decode(resp.Body)
	if err != nil {
		return zero, errors.Wrap(err, op)
	}

	return value, nil
}

// HandleBatch is Handle for write endpoints answering with a batch reply.
//
// Usage:
//
//	resp, err := c.transport.Send(ctx, bridge, key, req)
//	return response.HandleBatch(resp, err, "set light state")
func HandleBatch(resp *api.Response, err error, op string) (*api.BatchResult, error) {
	return Handle(resp, err, op, codec.DecodeBatch)
}

// CheckStatus returns a *api.ProtocolError for replies that are not 2xx.
func CheckStatus(resp *api.Response, op string) error {
	if resp == nil {
		return &api.ProtocolError{Op: op, Reason: "no response"}
	}

	if !resp.Success() {
		return &api.ProtocolError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Reason:     "unexpected status " + http.StatusText(resp.StatusCode),
		}
	}

	return nil
}

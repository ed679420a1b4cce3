// Package transport sends requests to Hue bridges over HTTPS.
//
// A Transport runs every request through a middleware chain:
//
//	Observability -> RateLimit -> Retry -> Deadline -> ApplicationKey -> Header -> TLS
//
// Each attempt is bounded by Config.Timeout. Connection failures and attempt
// timeouts are retried up to Config.MaxAttempts with exponential backoff; an
// HTTP reply of any status is returned to the caller unchanged. Requests are
// rate limited per bridge, with a slower bucket for group actions.
//
// Bridges serve a self-signed certificate, so verification is skipped unless
// Config.RootCAs or Config.TLSConfig is set.
//
//	t, err := transport.New(nil)
//	if err != nil {
//	    return err
//	}
//	resp, err := t.Send(ctx, bridge, key, codec.LightsRequest())
package transport

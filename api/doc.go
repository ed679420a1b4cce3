// Package api defines the data model shared by every layer of go-hue: bridge
// records, credentials, immutable wire requests and responses, the Hue
// resource types (lights, groups, scenes, bridge configuration), batch results
// and the error taxonomy.
//
// The package has no network or logging dependencies. Higher layers
// (transport, session, codec, discovery and the root hue client) exchange
// these types.
//
// # Errors
//
// Every failure surfaced by the library belongs to one of these kinds:
//
//   - *TransportError: timeout or connection failure after retries were exhausted
//   - *AuthError: no credential (Unpaired) or a rejected one (Invalidated)
//   - *ProtocolError: a reply the codec could not map to a known shape
//   - *PartialFailure: some items of a batch failed; only returned by BatchResult.Err
//   - *APIError: an error object reported by the bridge itself
//
// Use errors.Is with the sentinels (ErrTimeout, ErrAuthRequired, ...) or
// errors.As with the concrete types.
package api

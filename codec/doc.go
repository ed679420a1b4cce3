// Package codec maps typed go-hue values to bridge requests and bridge
// replies back to typed values.
//
// Encoders (LightStateRequest, GroupActionRequest, RegistrationRequest, ...)
// validate values before anything is sent and produce immutable api.Request
// values. Decoders (DecodeBatch, DecodeLights, DecodeConfig, ...) parse the
// reply generically, validate its shape against an embedded OpenAPI document
// and only then decode it into typed values. Replies that do not match the
// expected shape yield *api.ProtocolError; the codec never guesses.
//
// Batch replies keep one outcome per item in reply order, so a partially
// failed update can be inspected item by item:
//
//	result, err := codec.DecodeBatch(body)
//	if err != nil {
//		return err // malformed reply
//	}
//	for _, item := range result.Failed() {
//		log.Printf("item %d: %s", item.Index, item.Error.Description)
//	}
package codec

package codec

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
)

// DecodeBatch decodes a bridge batch reply into per-item outcomes.
// Every item must be exactly one of {"success": ...} or {"error": {...}}.
// An empty array is a successful result with no outcomes.
func DecodeBatch(body []byte) (*api.BatchResult, error) {
	const op = "decode batch"

	raw, err := parseJSON(op, body)
	if err != nil {
		return nil, err
	}
	if err := validate(schemaBatch, raw); err != nil {
		return nil, malformed(op, "unexpected batch shape", err)
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, malformed(op, "batch is not an array of objects", err)
	}

	result := &api.BatchResult{Outcomes: make([]api.ItemOutcome, 0, len(items))}
	for i, item := range items {
		outcome, err := decodeItem(i, item)
		if err != nil {
			return nil, malformed(op, "", err)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

func decodeItem(index int, item map[string]json.RawMessage) (api.ItemOutcome, error) {
	success, hasSuccess := item["success"]
	failure, hasError := item["error"]

	switch {
	case hasSuccess && !hasError:
		return api.ItemOutcome{Index: index, Success: success}, nil
	case hasError && !hasSuccess:
		var apiErr api.APIError
		if err := json.Unmarshal(failure, &apiErr); err != nil {
			return api.ItemOutcome{}, errors.Wrapf(err, "item %d has an invalid error object", index)
		}
		return api.ItemOutcome{Index: index, Error: &apiErr}, nil
	default:
		return api.ItemOutcome{}, errors.Newf("item %d is neither a success nor an error", index)
	}
}

// DecodeRegistration decodes the reply to a pairing request. A bridge-reported
// error (for example link button not pressed) is returned as *api.APIError.
func DecodeRegistration(body []byte) (*api.Registration, error) {
	const op = "decode registration"

	batch, err := DecodeBatch(body)
	if err != nil {
		return nil, err
	}
	if len(batch.Outcomes) == 0 {
		return nil, malformed(op, "empty registration reply", nil)
	}

	first := batch.Outcomes[0]
	if first.Error != nil {
		return nil, first.Error
	}

	var raw any
	if err := json.Unmarshal(first.Success, &raw); err != nil {
		return nil, malformed(op, "invalid success payload", err)
	}
	if err := validate(schemaRegistration, raw); err != nil {
		return nil, malformed(op, "unexpected registration shape", err)
	}

	var reg api.Registration
	if err := json.Unmarshal(first.Success, &reg); err != nil {
		return nil, malformed(op, "invalid registration", err)
	}

	return &reg, nil
}

// DecodeConfig decodes /api/config.
func DecodeConfig(body []byte) (*api.BridgeConfig, error) {
	var cfg api.BridgeConfig
	if err := decodeObject("decode config", schemaConfig, body, &cfg); err != nil {
		return nil, err
	}
	cfg.BridgeID = api.NormalizeBridgeID(cfg.BridgeID)
	return &cfg, nil
}

// DecodeLight decodes a single light.
func DecodeLight(id string, body []byte) (*api.Light, error) {
	var light api.Light
	if err := decodeObject("decode light", schemaLight, body, &light); err != nil {
		return nil, err
	}
	light.ID = id
	return &light, nil
}

// DecodeLights decodes the light listing, ordered by id.
func DecodeLights(body []byte) ([]api.Light, error) {
	var byID map[string]api.Light
	if err := decodeObject("decode lights", schemaLightMap, body, &byID); err != nil {
		return nil, err
	}

	lights := make([]api.Light, 0, len(byID))
	for id, light := range byID {
		light.ID = id
		lights = append(lights, light)
	}
	sort.Slice(lights, func(i, j int) bool { return lessID(lights[i].ID, lights[j].ID) })

	return lights, nil
}

// DecodeGroup decodes a single group.
func DecodeGroup(id string, body []byte) (*api.Group, error) {
	var group api.Group
	if err := decodeObject("decode group", schemaGroup, body, &group); err != nil {
		return nil, err
	}
	group.ID = id
	return &group, nil
}

// DecodeGroups decodes the group listing, ordered by id.
func DecodeGroups(body []byte) ([]api.Group, error) {
	var byID map[string]api.Group
	if err := decodeObject("decode groups", schemaGroupMap, body, &byID); err != nil {
		return nil, err
	}

	groups := make([]api.Group, 0, len(byID))
	for id, group := range byID {
		group.ID = id
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return lessID(groups[i].ID, groups[j].ID) })

	return groups, nil
}

// DecodeScenes decodes the scene listing, ordered by id.
func DecodeScenes(body []byte) ([]api.Scene, error) {
	var byID map[string]api.Scene
	if err := decodeObject("decode scenes", schemaSceneMap, body, &byID); err != nil {
		return nil, err
	}

	scenes := make([]api.Scene, 0, len(byID))
	for id, scene := range byID {
		scene.ID = id
		scenes = append(scenes, scene)
	}
	sort.Slice(scenes, func(i, j int) bool { return lessID(scenes[i].ID, scenes[j].ID) })

	return scenes, nil
}

// decodeObject decodes a JSON object reply. The bridge answers failed reads
// with an error array instead of the object; the first error is returned as
// *api.APIError.
func decodeObject(op, schema string, body []byte, v any) error {
	raw, err := parseJSON(op, body)
	if err != nil {
		return err
	}

	if _, isArray := raw.([]any); isArray {
		return errorReply(op, body)
	}

	if err := validate(schema, raw); err != nil {
		return malformed(op, "unexpected "+schema+" shape", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return malformed(op, "", err)
	}

	return nil
}

func errorReply(op string, body []byte) error {
	batch, err := DecodeBatch(body)
	if err != nil {
		return err
	}

	if failed := batch.Failed(); len(failed) > 0 {
		return failed[0].Error
	}

	return malformed(op, "unexpected array reply", nil)
}

func parseJSON(op string, body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, malformed(op, "empty body", nil)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed(op, "invalid JSON", err)
	}

	return raw, nil
}

func malformed(op, reason string, err error) error {
	return &api.ProtocolError{Op: op, Reason: reason, Err: err}
}

// lessID orders numeric ids numerically and falls back to string order.
func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

type discoveryItem struct {
	ID                string `json:"id"`
	InternalIPAddress string `json:"internalipaddress"`
	Port              int    `json:"port"`
}

// DecodeDiscovery decodes the reply of the bridge discovery endpoint.
// Port 443 is the scheme default and is left as zero.
func DecodeDiscovery(body []byte) ([]api.Bridge, error) {
	const op = "decode discovery"

	raw, err := parseJSON(op, body)
	if err != nil {
		return nil, err
	}
	if err := validate(schemaDiscovery, raw); err != nil {
		return nil, malformed(op, "unexpected discovery shape", err)
	}

	var items []discoveryItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, malformed(op, "", err)
	}

	bridges := make([]api.Bridge, 0, len(items))
	for _, item := range items {
		port := item.Port
		if port == defaultHTTPSPort {
			port = 0
		}

		bridges = append(bridges, api.Bridge{
			ID:      api.NormalizeBridgeID(item.ID),
			Address: item.InternalIPAddress,
			Port:    port,
		})
	}

	return bridges, nil
}

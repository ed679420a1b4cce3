package codec

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
)

// AppliedState rebuilds the state the bridge reports as applied from the
// success items of a state or action update, e.g.
// {"success":{"/lights/1/state/bri":200}}. Failed items and addresses that
// are not state attributes are ignored.
func AppliedState(result *api.BatchResult) (api.LightState, error) {
	var state api.LightState
	if result == nil {
		return state, nil
	}

	for _, outcome := range result.Succeeded() {
		var echo map[string]json.RawMessage
		if err := json.Unmarshal(outcome.Success, &echo); err != nil {
			// Non-object successes (e.g. deletions) carry no state.
			continue
		}

		for address, value := range echo {
			if !isStateAddress(address) {
				continue
			}
			attr := address[strings.LastIndex(address, "/")+1:]
			if err := applyAttribute(&state, attr, value); err != nil {
				return api.LightState{}, malformed("decode applied state", address, err)
			}
		}
	}

	return state, nil
}

func isStateAddress(address string) bool {
	return strings.Contains(address, "/state/") || strings.Contains(address, "/action/")
}

func applyAttribute(state *api.LightState, attr string, value json.RawMessage) error {
	var target any

	switch attr {
	case "on":
		state.On = new(bool)
		target = state.On
	case "bri":
		state.Bri = new(int)
		target = state.Bri
	case "hue":
		state.Hue = new(int)
		target = state.Hue
	case "sat":
		state.Sat = new(int)
		target = state.Sat
	case "ct":
		state.CT = new(int)
		target = state.CT
	case "transitiontime":
		state.TransitionTime = new(int)
		target = state.TransitionTime
	case "bri_inc":
		state.BriInc = new(int)
		target = state.BriInc
	case "ct_inc":
		state.CTInc = new(int)
		target = state.CTInc
	case "xy":
		target = &state.XY
	case "alert":
		target = &state.Alert
	case "effect":
		target = &state.Effect
	default:
		return nil
	}

	return errors.Wrap(json.Unmarshal(value, target), attr)
}

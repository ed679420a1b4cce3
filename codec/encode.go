package codec

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/oapi-codegen/runtime"

	"github.com/lexfrei/go-hue/api"
)

// Device type limits imposed by the bridge ("<app>#<instance>").
const (
	MaxAppNameLength      = 20
	MaxInstanceNameLength = 19
)

const defaultHTTPSPort = 443

var (
	validAlerts  = []string{api.AlertNone, api.AlertSelect, api.AlertLong}
	validEffects = []string{api.EffectNone, api.EffectColorLoop}
)

type registrationBody struct {
	DeviceType        string `json:"devicetype"`
	GenerateClientKey bool   `json:"generateclientkey,omitempty"`
}

// RegistrationRequest encodes a pairing request for the given device type.
func RegistrationRequest(deviceType string, generateClientKey bool) (api.Request, error) {
	app, instance, ok := strings.Cut(deviceType, "#")
	if !ok || app == "" || instance == "" {
		return api.Request{}, errors.Wrapf(api.ErrInvalidRequest, "device type %q must be <app>#<instance>", deviceType)
	}
	if len(app) > MaxAppNameLength || len(instance) > MaxInstanceNameLength {
		return api.Request{}, errors.Wrapf(api.ErrInvalidRequest, "device type %q is too long", deviceType)
	}

	body, err := json.Marshal(registrationBody{DeviceType: deviceType, GenerateClientKey: generateClientKey})
	if err != nil {
		return api.Request{}, errors.Wrap(err, "failed to encode registration")
	}

	return api.NewRequest(http.MethodPost, "", body, false), nil
}

// ConfigRequest encodes the unauthenticated bridge configuration request.
func ConfigRequest() api.Request {
	return api.NewRequest(http.MethodGet, "config", nil, false)
}

// FullConfigRequest encodes the authenticated bridge configuration request.
func FullConfigRequest() api.Request {
	return api.NewRequest(http.MethodGet, "config", nil, true)
}

// LightsRequest encodes a request listing every light.
func LightsRequest() api.Request {
	return api.NewRequest(http.MethodGet, "lights", nil, true)
}

// LightRequest encodes a request for one light.
func LightRequest(id string) (api.Request, error) {
	path, err := resourcePath("lights", id)
	if err != nil {
		return api.Request{}, err
	}
	return api.NewRequest(http.MethodGet, path, nil, true), nil
}

// LightStateRequest encodes a state update for one light.
func LightStateRequest(id string, state api.LightState) (api.Request, error) {
	if state.IsEmpty() {
		return api.Request{}, errors.Wrap(api.ErrInvalidRequest, "light state has no attributes set")
	}
	if err := ValidateLightState(state); err != nil {
		return api.Request{}, err
	}

	path, err := resourcePath("lights", id, "state")
	if err != nil {
		return api.Request{}, err
	}

	return encodeJSON(http.MethodPut, path, state.Writable())
}

// RenameLightRequest encodes a light attribute update changing its name.
func RenameLightRequest(id, name string) (api.Request, error) {
	if name == "" || len(name) > 32 {
		return api.Request{}, errors.Wrapf(api.ErrInvalidRequest, "light name must be 1..32 characters, got %d", len(name))
	}

	path, err := resourcePath("lights", id)
	if err != nil {
		return api.Request{}, err
	}

	return encodeJSON(http.MethodPut, path, map[string]string{"name": name})
}

// GroupsRequest encodes a request listing every group.
func GroupsRequest() api.Request {
	return api.NewRequest(http.MethodGet, "groups", nil, true)
}

// GroupRequest encodes a request for one group.
func GroupRequest(id string) (api.Request, error) {
	path, err := resourcePath("groups", id)
	if err != nil {
		return api.Request{}, err
	}
	return api.NewRequest(http.MethodGet, path, nil, true), nil
}

// GroupActionRequest encodes an action applied to every light of a group.
// Group "0" addresses all lights known to the bridge.
func GroupActionRequest(id string, action api.GroupAction) (api.Request, error) {
	if action.Scene == "" && action.IsEmpty() {
		return api.Request{}, errors.Wrap(api.ErrInvalidRequest, "group action has no attributes set")
	}
	if err := ValidateLightState(action.LightState); err != nil {
		return api.Request{}, err
	}

	path, err := resourcePath("groups", id, "action")
	if err != nil {
		return api.Request{}, err
	}

	out := action
	out.LightState = action.Writable()

	return encodeJSON(http.MethodPut, path, out)
}

// ActivateSceneRequest encodes a scene recall on a group.
func ActivateSceneRequest(groupID, sceneID string) (api.Request, error) {
	if sceneID == "" {
		return api.Request{}, errors.Wrap(api.ErrInvalidRequest, "scene id is required")
	}
	return GroupActionRequest(groupID, api.GroupAction{Scene: sceneID})
}

// ScenesRequest encodes a request listing every scene.
func ScenesRequest() api.Request {
	return api.NewRequest(http.MethodGet, "scenes", nil, true)
}

// ValidateLightState checks that every set attribute is within the range the
// bridge accepts.
func ValidateLightState(s api.LightState) error {
	if err := checkRange("bri", s.Bri, api.MinBrightness, api.MaxBrightness); err != nil {
		return err
	}
	if err := checkRange("hue", s.Hue, 0, api.MaxHue); err != nil {
		return err
	}
	if err := checkRange("sat", s.Sat, 0, api.MaxSaturation); err != nil {
		return err
	}
	if err := checkRange("ct", s.CT, api.MinColorTemperature, api.MaxColorTemperature); err != nil {
		return err
	}
	if err := checkRange("transitiontime", s.TransitionTime, 0, api.MaxTransitionTime); err != nil {
		return err
	}
	if err := checkRange("bri_inc", s.BriInc, -api.MaxBrightness, api.MaxBrightness); err != nil {
		return err
	}
	if err := checkRange("ct_inc", s.CTInc, -65534, 65534); err != nil {
		return err
	}

	if s.XY != nil {
		if len(s.XY) != 2 {
			return errors.Wrapf(api.ErrInvalidRequest, "xy needs 2 coordinates, got %d", len(s.XY))
		}
		for _, v := range s.XY {
			if v < 0 || v > 1 {
				return errors.Wrapf(api.ErrInvalidRequest, "xy coordinate %g out of range 0..1", v)
			}
		}
	}

	if s.Alert != "" && !slices.Contains(validAlerts, s.Alert) {
		return errors.Wrapf(api.ErrInvalidRequest, "unknown alert %q", s.Alert)
	}
	if s.Effect != "" && !slices.Contains(validEffects, s.Effect) {
		return errors.Wrapf(api.ErrInvalidRequest, "unknown effect %q", s.Effect)
	}

	return nil
}

func checkRange(name string, v *int, minValue, maxValue int) error {
	if v == nil {
		return nil
	}
	if *v < minValue || *v > maxValue {
		return errors.Wrapf(api.ErrInvalidRequest, "%s %d out of range %d..%d", name, *v, minValue, maxValue)
	}
	return nil
}

// resourcePath builds "<collection>/<id>[/<suffix>...]" with the id styled
// as a simple path parameter.
func resourcePath(collection, id string, suffix ...string) (string, error) {
	if id == "" {
		return "", errors.Wrapf(api.ErrInvalidRequest, "%s id is required", collection)
	}

	styled, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, id)
	if err != nil {
		return "", errors.Wrapf(api.ErrInvalidRequest, "invalid %s id %q: %v", collection, id, err)
	}

	return strings.Join(append([]string{collection, styled}, suffix...), "/"), nil
}

func encodeJSON(method, path string, v any) (api.Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return api.Request{}, errors.Wrapf(err, "failed to encode %s", path)
	}
	return api.NewRequest(method, path, body, true), nil
}

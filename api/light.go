package api

// Value ranges accepted by the bridge for light state attributes.
const (
	MinBrightness = 1
	MaxBrightness = 254

	MaxHue        = 65535
	MaxSaturation = 254

	// MinColorTemperature and MaxColorTemperature are in mireds.
	MinColorTemperature = 153
	MaxColorTemperature = 500

	MaxTransitionTime = 65535
)

// Alert values.
const (
	AlertNone   = "none"
	AlertSelect = "select"
	AlertLong   = "lselect"
)

// Effect values.
const (
	EffectNone      = "none"
	EffectColorLoop = "colorloop"
)

// LightState is the state of a light (v1 API).
// Nil fields are left unchanged by a state update. ColorMode and Reachable
// are reported by the bridge and never sent.
type LightState struct {
	On             *bool     `json:"on,omitempty"`
	Bri            *int      `json:"bri,omitempty"`
	Hue            *int      `json:"hue,omitempty"`
	Sat            *int      `json:"sat,omitempty"`
	XY             []float64 `json:"xy,omitempty"`
	CT             *int      `json:"ct,omitempty"`
	Alert          string    `json:"alert,omitempty"`
	Effect         string    `json:"effect,omitempty"`
	TransitionTime *int      `json:"transitiontime,omitempty"`
	BriInc         *int      `json:"bri_inc,omitempty"`
	CTInc          *int      `json:"ct_inc,omitempty"`

	ColorMode string `json:"colormode,omitempty"`
	Reachable *bool  `json:"reachable,omitempty"`
}

// Writable returns a copy of the state without the read-only attributes.
func (s LightState) Writable() LightState {
	out := s
	out.ColorMode = ""
	out.Reachable = nil
	if s.XY != nil {
		out.XY = append([]float64(nil), s.XY...)
	}
	return out
}

// IsEmpty reports whether no writable attribute is set.
func (s LightState) IsEmpty() bool {
	w := s.Writable()
	return w.On == nil && w.Bri == nil && w.Hue == nil && w.Sat == nil &&
		len(w.XY) == 0 && w.CT == nil && w.Alert == "" && w.Effect == "" &&
		w.TransitionTime == nil && w.BriInc == nil && w.CTInc == nil
}

// Light is a light resource as listed by the bridge.
type Light struct {
	ID               string       `json:"-"`
	Name             string       `json:"name"`
	Type             string       `json:"type"`
	ModelID          string       `json:"modelid,omitempty"`
	ManufacturerName string       `json:"manufacturername,omitempty"`
	ProductName      string       `json:"productname,omitempty"`
	UniqueID         string       `json:"uniqueid,omitempty"`
	SoftwareVersion  string       `json:"swversion,omitempty"`
	State            LightState   `json:"state"`
	Capabilities     Capabilities `json:"capabilities"`
}

// Capabilities describes what a light can do.
type Capabilities struct {
	Certified bool `json:"certified,omitempty"`
	Control   struct {
		MinDimLevel    int         `json:"mindimlevel,omitempty"`
		MaxLumen       int         `json:"maxlumen,omitempty"`
		ColorGamutType string      `json:"colorgamuttype,omitempty"`
		ColorGamut     [][]float64 `json:"colorgamut,omitempty"`
		CT             *struct {
			Min int `json:"min"`
			Max int `json:"max"`
		} `json:"ct,omitempty"`
	} `json:"control"`
}

// SupportsColor reports whether the light has a color gamut.
func (c Capabilities) SupportsColor() bool {
	return c.Control.ColorGamutType != "" || len(c.Control.ColorGamut) > 0
}

// SupportsColorTemperature reports whether the light accepts ct values.
func (c Capabilities) SupportsColorTemperature() bool {
	return c.Control.CT != nil && c.Control.CT.Max > 0
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

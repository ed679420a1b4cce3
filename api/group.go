package api

// GroupState summarizes the on state of the lights in a group.
type GroupState struct {
	AllOn bool `json:"all_on"`
	AnyOn bool `json:"any_on"`
}

// Group is a group resource (room, zone, light group).
type Group struct {
	ID     string     `json:"-"`
	Name   string     `json:"name"`
	Lights []string   `json:"lights"`
	Type   string     `json:"type"`
	Class  string     `json:"class,omitempty"`
	State  GroupState `json:"state"`
	Action LightState `json:"action"`
}

// GroupAction is a state update applied to every light of a group.
// Scene recalls a stored scene instead of (or in addition to) the state.
type GroupAction struct {
	LightState

	Scene string `json:"scene,omitempty"`
}

// Scene is a stored scene.
type Scene struct {
	ID          string   `json:"-"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Group       string   `json:"group,omitempty"`
	Lights      []string `json:"lights"`
	Owner       string   `json:"owner,omitempty"`
	Recycle     bool     `json:"recycle,omitempty"`
	Locked      bool     `json:"locked,omitempty"`
	LastUpdated string   `json:"lastupdated,omitempty"`
	Version     int      `json:"version,omitempty"`
}

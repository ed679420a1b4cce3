package api

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Bridge identifies a Hue bridge on the local network.
// ID is stable; Address may change between discovery scans.
type Bridge struct {
	// ID is the normalized bridge identifier (lower-case hex).
	ID string

	// Address is the IP address or host name of the bridge.
	Address string

	// Port overrides the scheme default port when non-zero.
	Port int

	// Name is the human-readable bridge name, if known.
	Name string

	// Source names the discovery mechanism that reported the bridge.
	Source string
}

// HostPort returns the host[:port] form used to build request URLs.
func (b Bridge) HostPort() string {
	if b.Port != 0 {
		return net.JoinHostPort(b.Address, strconv.Itoa(b.Port))
	}

	if strings.Contains(b.Address, ":") {
		return "[" + b.Address + "]"
	}

	return b.Address
}

// NormalizeBridgeID lower-cases and trims a bridge identifier so that ids
// reported by mDNS, the discovery endpoint and /api/config compare equal.
func NormalizeBridgeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Credential is an application key issued by one bridge.
type Credential struct {
	// BridgeID is the bridge that issued the key.
	BridgeID string

	// Key is the application key (the v1 API "username").
	Key string

	// ClientKey is the entertainment streaming key, if one was requested.
	ClientKey string

	// IssuedAt is when the credential was obtained or restored.
	IssuedAt time.Time
}

// Valid reports whether the credential carries a bridge id and a key.
func (c Credential) Valid() bool {
	return c.BridgeID != "" && c.Key != ""
}

// Registration is the success payload of a pairing request.
type Registration struct {
	Username  string `json:"username"`
	ClientKey string `json:"clientkey,omitempty"`
}

// BridgeConfig is the subset of /api/config exposed by the bridge.
// The unauthenticated variant fills only the identification fields.
type BridgeConfig struct {
	Name             string `json:"name"`
	BridgeID         string `json:"bridgeid"`
	MAC              string `json:"mac,omitempty"`
	ModelID          string `json:"modelid,omitempty"`
	APIVersion       string `json:"apiversion,omitempty"`
	SoftwareVersion  string `json:"swversion,omitempty"`
	DataStoreVersion string `json:"datastoreversion,omitempty"`
	FactoryNew       bool   `json:"factorynew,omitempty"`
	IPAddress        string `json:"ipaddress,omitempty"`
	ZigbeeChannel    int    `json:"zigbeechannel,omitempty"`
}

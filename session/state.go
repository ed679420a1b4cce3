package session

import (
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/codec"
)

// State is the pairing state of one bridge.
type State int

// Pairing states. Paired is the only state that yields a credential.
const (
	StateUnpaired State = iota
	StatePairing
	StatePaired
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StatePairing:
		return "pairing"
	case StatePaired:
		return "paired"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Entry describes one bridge known to a Manager. It never carries the key.
type Entry struct {
	BridgeID string
	State    State
	IssuedAt time.Time
}

// DeviceType builds the "<app>#<instance>" name a bridge shows for a paired
// application. Both parts are truncated to the bridge limits; an empty
// instance defaults to the host name, or a random id when that is unknown.
func DeviceType(app, instance string) (string, error) {
	app = clean(app)
	if app == "" {
		return "", errors.Wrap(api.ErrInvalidRequest, "application name is required")
	}

	instance = clean(instance)
	if instance == "" {
		instance = defaultInstance()
	}

	return truncate(app, codec.MaxAppNameLength) + "#" + truncate(instance, codec.MaxInstanceNameLength), nil
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err == nil {
		host, _, _ = strings.Cut(host, ".")
		if host = clean(host); host != "" {
			return host
		}
	}

	return uuid.NewString()[:8]
}

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "#", "-"))
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}

	return s
}

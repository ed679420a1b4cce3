package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lexfrei/go-hue/api"
)

// FakeBridge is an in-process Hue bridge serving the v1 API over TLS.
// It keeps lights, groups and scenes in memory, honors the link button and
// rejects unknown application keys the way a real bridge does.
type FakeBridge struct {
	ID     string
	Server *httptest.Server

	mu          sync.Mutex
	linkPressed bool
	keys        map[string]bool
	issued      int
	lights      map[string]map[string]any
	groups      map[string]map[string]any
	scenes      map[string]map[string]any
	forced      []int
	hits        atomic.Int64
	writes      []string
}

// NewFakeBridge starts a fake bridge with the given id. It is closed when the
// test ends.
func NewFakeBridge(t *testing.T, id string) *FakeBridge {
	t.Helper()

	b := &FakeBridge{
		ID:     id,
		keys:   make(map[string]bool),
		lights: make(map[string]map[string]any),
		groups: make(map[string]map[string]any),
		scenes: make(map[string]map[string]any),
	}
	b.Server = httptest.NewTLSServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)

	return b
}

// Bridge returns the api.Bridge addressing the fake.
func (b *FakeBridge) Bridge(t *testing.T) api.Bridge {
	t.Helper()
	return BridgeFor(t, b.Server, b.ID)
}

// PressLinkButton makes the next registrations succeed.
func (b *FakeBridge) PressLinkButton() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linkPressed = true
}

// AddKey whitelists an application key.
func (b *FakeBridge) AddKey(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys[key] = true
}

// RevokeKey removes an application key; requests using it become unauthorized.
func (b *FakeBridge) RevokeKey(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.keys, key)
}

// AddLight stores a light under id.
func (b *FakeBridge) AddLight(id string, light api.Light) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lights[id] = toObject(light)
}

// AddGroup stores a group under id.
func (b *FakeBridge) AddGroup(id string, group api.Group) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups[id] = toObject(group)
}

// AddScene stores a scene under id.
func (b *FakeBridge) AddScene(id string, scene api.Scene) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenes[id] = toObject(scene)
}

// ForceStatus makes the next requests fail with the given HTTP statuses, in order.
func (b *FakeBridge) ForceStatus(statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forced = append(b.forced, statuses...)
}

// Hits returns the number of requests served.
func (b *FakeBridge) Hits() int {
	return int(b.hits.Load())
}

// Writes returns the bodies of all PUT requests, in order.
func (b *FakeBridge) Writes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.writes)
}

func (b *FakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	b.hits.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.forced) > 0 {
		status := b.forced[0]
		b.forced = b.forced[1:]
		w.WriteHeader(status)
		return
	}

	body, _ := io.ReadAll(r.Body)
	if r.Method == http.MethodPut {
		b.writes = append(b.writes, string(body))
	}

	path := strings.TrimSuffix(r.URL.EscapedPath(), "/")

	switch {
	case path == "/api" && r.Method == http.MethodPost:
		b.register(w, body)
	case path == "/api/config" && r.Method == http.MethodGet:
		writeJSON(w, b.config())
	case strings.HasPrefix(path, "/api/"):
		rest := strings.TrimPrefix(path, "/api/")
		key, resource, _ := strings.Cut(rest, "/")
		if !b.keys[key] {
			writeJSON(w, errorItems(api.ErrorTypeUnauthorizedUser, "/"+resource, "unauthorized user"))
			return
		}
		b.resource(w, r.Method, resource, body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *FakeBridge) register(w http.ResponseWriter, body []byte) {
	var req struct {
		DeviceType        string `json:"devicetype"`
		GenerateClientKey bool   `json:"generateclientkey"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.DeviceType == "" {
		writeJSON(w, errorItems(api.ErrorTypeMissingParameters, "", "invalid value for parameter, devicetype"))
		return
	}

	if !b.linkPressed {
		writeJSON(w, errorItems(api.ErrorTypeLinkButtonNotPressed, "", "link button not pressed"))
		return
	}

	b.issued++
	key := fmt.Sprintf("key-%d-%s", b.issued, strings.ReplaceAll(req.DeviceType, "#", "-"))
	b.keys[key] = true

	success := map[string]any{"username": key}
	if req.GenerateClientKey {
		success["clientkey"] = fmt.Sprintf("%032X", b.issued)
	}

	writeJSON(w, []any{map[string]any{"success": success}})
}

func (b *FakeBridge) config() map[string]any {
	return map[string]any{
		"name":       "Fake Hue",
		"bridgeid":   strings.ToUpper(b.ID),
		"mac":        "00:17:88:23:bf:c2",
		"modelid":    "BSB002",
		"apiversion": "1.65.0",
		"swversion":  "1965111030",
	}
}

func (b *FakeBridge) resource(w http.ResponseWriter, method, resource string, body []byte) {
	parts := strings.Split(resource, "/")

	switch {
	case resource == "config" && method == http.MethodGet:
		writeJSON(w, b.config())
	case parts[0] == "lights":
		b.collection(w, method, "lights", b.lights, parts, body)
	case parts[0] == "groups":
		b.collection(w, method, "groups", b.groups, parts, body)
	case parts[0] == "scenes" && len(parts) == 1 && method == http.MethodGet:
		writeJSON(w, b.scenes)
	default:
		writeJSON(w, errorItems(api.ErrorTypeMethodNotAvailable, "/"+resource, "method not available for resource"))
	}
}

func (b *FakeBridge) collection(w http.ResponseWriter, method, name string, items map[string]map[string]any, parts []string, body []byte) {
	if len(parts) == 1 && method == http.MethodGet {
		writeJSON(w, items)
		return
	}

	id := parts[1]
	item, ok := items[id]
	if !ok {
		writeJSON(w, errorItems(api.ErrorTypeResourceNotAvailable, "/"+strings.Join(parts, "/"),
			fmt.Sprintf("resource, /%s/%s, not available", name, id)))
		return
	}

	switch {
	case len(parts) == 2 && method == http.MethodGet:
		writeJSON(w, item)
	case len(parts) == 2 && method == http.MethodPut:
		writeJSON(w, apply(item, "/"+name+"/"+id, body))
	case len(parts) == 3 && method == http.MethodPut && (parts[2] == "state" || parts[2] == "action"):
		target, _ := item[parts[2]].(map[string]any)
		if target == nil {
			target = make(map[string]any)
			item[parts[2]] = target
		}
		writeJSON(w, apply(target, "/"+strings.Join(parts, "/"), body))
	default:
		writeJSON(w, errorItems(api.ErrorTypeMethodNotAvailable, "/"+strings.Join(parts, "/"), "method not available for resource"))
	}
}

// apply stores every attribute of body in target and echoes one success item
// per attribute, ordered by attribute name.
func apply(target map[string]any, address string, body []byte) []any {
	var changes map[string]any
	if err := json.Unmarshal(body, &changes); err != nil {
		return errorItems(api.ErrorTypeInvalidJSON, address, "body contains invalid json")
	}

	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	slices.Sort(names)

	items := make([]any, 0, len(names))
	for _, name := range names {
		target[name] = changes[name]
		items = append(items, map[string]any{
			"success": map[string]any{address + "/" + name: changes[name]},
		})
	}

	return items
}

func errorItems(errorType int, address, description string) []any {
	return []any{map[string]any{"error": map[string]any{
		"type":        errorType,
		"address":     address,
		"description": description,
	}}}
}

func toObject(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		panic(err)
	}

	return obj
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

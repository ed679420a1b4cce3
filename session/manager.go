package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/observability"
)

const (
	// DefaultPollInterval is the wait between pairing attempts.
	DefaultPollInterval = time.Second
	// DefaultPairingTimeout bounds a whole pairing run.
	DefaultPairingTimeout = 30 * time.Second
)

// Registrar asks a bridge for a new application key.
// A link button that was not pressed is reported as *api.APIError of type 101.
type Registrar interface {
	Register(ctx context.Context, bridge api.Bridge, deviceType string, generateClientKey bool) (*api.Registration, error)
}

// Config holds the session manager settings.
type Config struct {
	// AppName is the application part of the device type (required)
	AppName string

	// InstanceName is the instance part of the device type (defaults to the host name)
	InstanceName string

	// PollInterval is the wait between pairing attempts (defaults to 1s)
	PollInterval time.Duration

	// PairingTimeout bounds a pairing run (defaults to 30s)
	PairingTimeout time.Duration

	// GenerateClientKey requests an entertainment client key when pairing
	GenerateClientKey bool

	// Logger for observability (optional, uses noop logger if nil)
	Logger observability.Logger

	// Metrics recorder for observability (optional, uses noop recorder if nil)
	Metrics observability.MetricsRecorder
}

// Manager is the single source of truth for bridge credentials.
// All methods are safe for concurrent use.
type Manager struct {
	registrar         Registrar
	deviceType        string
	pollInterval      time.Duration
	pairingTimeout    time.Duration
	generateClientKey bool
	logger            observability.Logger
	metrics           observability.MetricsRecorder

	mu      sync.RWMutex
	entries map[string]*entry
	running map[string]*flight
	flights singleflight.Group
}

// flight is the shared pairing run of one bridge. Its context is detached
// from every caller and canceled once the last waiting caller leaves.
type flight struct {
	ctx     context.Context //nolint:containedctx // outlives the caller that started the run
	cancel  context.CancelFunc
	waiters int
}

type entry struct {
	state State
	cred  api.Credential
	// generation changes on every transition so that a pairing run can tell
	// whether its entry was replaced while it was polling.
	generation uint64
	// before is the state a running pairing restores on failure.
	before *entry
}

// NewManager creates a session manager that pairs through registrar.
func NewManager(registrar Registrar, cfg *Config) (*Manager, error) {
	if registrar == nil {
		return nil, errors.New("registrar is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	deviceType, err := DeviceType(cfg.AppName, cfg.InstanceName)
	if err != nil {
		return nil, err
	}

	// Set defaults
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	pairingTimeout := cfg.PairingTimeout
	if pairingTimeout <= 0 {
		pairingTimeout = DefaultPairingTimeout
	}

	return &Manager{
		registrar:         registrar,
		deviceType:        deviceType,
		pollInterval:      pollInterval,
		pairingTimeout:    pairingTimeout,
		generateClientKey: cfg.GenerateClientKey,
		logger:            observability.OrNoop(cfg.Logger),
		metrics:           observability.MetricsOrNoop(cfg.Metrics),
		entries:           make(map[string]*entry),
		running:           make(map[string]*flight),
	}, nil
}

// DeviceType returns the "<app>#<instance>" name used for pairing.
func (m *Manager) DeviceType() string {
	return m.deviceType
}

// Pair obtains a credential for bridge by polling the registrar until the
// link button is pressed, PairingTimeout elapses or ctx is done.
//
// A bridge that is already paired yields its current credential without any
// network call. Concurrent calls for the same bridge share one poll loop;
// a caller that gives up leaves the loop running for the others, and the
// loop stops when no caller waits for it any more.
// On timeout the error matches api.ErrPairingTimeout; on cancellation it
// wraps context.Canceled. Either way the previous state is restored.
func (m *Manager) Pair(ctx context.Context, bridge api.Bridge) (api.Credential, error) {
	id := api.NormalizeBridgeID(bridge.ID)
	if id == "" {
		return api.Credential{}, errors.Wrap(api.ErrInvalidRequest, "bridge id is required for pairing")
	}
	bridge.ID = id

	if cred, ok := m.paired(id); ok {
		m.metrics.RecordPairing(observability.PairingAlreadyPaired)
		return cred, nil
	}

	run := m.join(ctx, id)
	defer m.leave(id, run)

	results := m.flights.DoChan(id, func() (any, error) {
		return m.pair(run.ctx, bridge)
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return api.Credential{}, res.Err
		}
		//nolint:forcetypeassert // pair only returns api.Credential
		return res.Val.(api.Credential), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return api.Credential{}, errors.Wrap(ctx.Err(), "pairing canceled")
		}
		return api.Credential{}, errors.Wrapf(api.ErrPairingTimeout, "bridge %s", id)
	}
}

// join registers a caller of the shared pairing run for id, starting a new
// run context when none is active.
func (m *Manager) join(ctx context.Context, id string) *flight {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := m.running[id]
	if run == nil {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		run = &flight{ctx: runCtx, cancel: cancel}
		m.running[id] = run
	}
	run.waiters++

	return run
}

// leave unregisters a caller. The last one out cancels the run and detaches
// it from the singleflight group so that a later Pair starts afresh.
func (m *Manager) leave(id string, run *flight) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run.waiters--
	if run.waiters > 0 {
		return
	}

	run.cancel()
	if m.running[id] == run {
		delete(m.running, id)
		m.flights.Forget(id)
	}
}

func (m *Manager) pair(ctx context.Context, bridge api.Bridge) (api.Credential, error) {
	generation, cred, ok, err := m.begin(ctx, bridge.ID)
	if err != nil {
		return api.Credential{}, errors.Wrap(err, "pairing canceled")
	}
	if ok {
		m.metrics.RecordPairing(observability.PairingAlreadyPaired)
		return cred, nil
	}

	pairCtx, cancel := context.WithTimeout(ctx, m.pairingTimeout)
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	logger := m.logger.With(observability.Field{Key: "bridge_id", Value: bridge.ID})

	for attempt := 1; ; attempt++ {
		reg, err := m.registrar.Register(pairCtx, bridge, m.deviceType, m.generateClientKey)

		switch {
		case err == nil:
			cred := api.Credential{
				BridgeID:  bridge.ID,
				Key:       reg.Username,
				ClientKey: reg.ClientKey,
				IssuedAt:  time.Now(),
			}
			m.finish(bridge.ID, generation, cred)
			m.metrics.RecordPairing(observability.PairingSucceeded)
			logger.Info("bridge paired", observability.Field{Key: "attempts", Value: attempt})
			return cred, nil

		case pairCtx.Err() != nil:
			return api.Credential{}, m.abort(ctx, bridge.ID, generation, attempt)

		case api.IsLinkButtonNotPressed(err):
			m.metrics.RecordPairing(observability.PairingLinkButtonWait)
			logger.Debug("link button not pressed", observability.Field{Key: "attempt", Value: attempt})

		default:
			m.rollback(bridge.ID, generation)
			m.metrics.RecordPairing(observability.PairingFailed)
			logger.Warn("pairing failed", observability.Field{Key: "error", Value: err.Error()})
			return api.Credential{}, errors.Wrap(err, "pairing failed")
		}

		select {
		case <-ticker.C:
		case <-pairCtx.Done():
			return api.Credential{}, m.abort(ctx, bridge.ID, generation, attempt)
		}
	}
}

// abort ends a pairing run that ran out of time or was canceled.
func (m *Manager) abort(parent context.Context, id string, generation uint64, attempts int) error {
	m.rollback(id, generation)

	if errors.Is(parent.Err(), context.Canceled) {
		m.metrics.RecordPairing(observability.PairingCanceled)
		return errors.Wrap(parent.Err(), "pairing canceled")
	}

	m.metrics.RecordPairing(observability.PairingTimedOut)
	m.logger.Warn("pairing timed out",
		observability.Field{Key: "bridge_id", Value: id},
		observability.Field{Key: "attempts", Value: attempts},
	)

	return errors.Wrapf(api.ErrPairingTimeout, "bridge %s: no link button press after %d attempts", id, attempts)
}

// begin moves a bridge to Pairing. It reports the current credential
// instead when the bridge is already paired, and leaves the state alone when
// the run was canceled before it started.
func (m *Manager) begin(ctx context.Context, id string) (uint64, api.Credential, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// leave cancels under mu, so a run that passes this check started before
	// any newer run for the same bridge.
	if err := ctx.Err(); err != nil {
		return 0, api.Credential{}, false, err
	}

	current := m.entries[id]
	if current != nil && current.state == StatePaired {
		return 0, current.cred, true, nil
	}

	next := &entry{state: StatePairing}
	if current != nil {
		next.generation = current.generation + 1
		if current.state == StatePairing {
			// A canceled run is still unwinding; keep the state it started from.
			next.before = current.before
		} else {
			before := *current
			next.before = &before
		}
	}
	m.entries[id] = next
	m.logTransition(id, current, StatePairing)

	return next.generation, api.Credential{}, false, nil
}

// finish stores cred if the pairing run still owns the entry.
func (m *Manager) finish(id string, generation uint64, cred api.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.entries[id]
	if current == nil || current.state != StatePairing || current.generation != generation {
		return
	}

	m.entries[id] = &entry{state: StatePaired, cred: cred, generation: generation + 1}
	m.logTransition(id, current, StatePaired)
}

// rollback restores the state a pairing run started from.
func (m *Manager) rollback(id string, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.entries[id]
	if current == nil || current.state != StatePairing || current.generation != generation {
		return
	}

	if current.before == nil {
		delete(m.entries, id)
		m.logTransition(id, current, StateUnpaired)
		return
	}

	restored := *current.before
	restored.generation = generation + 1
	m.entries[id] = &restored
	m.logTransition(id, current, restored.state)
}

func (m *Manager) paired(id string) (api.Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e := m.entries[id]; e != nil && e.state == StatePaired {
		return e.cred, true
	}

	return api.Credential{}, false
}

// Credential returns the valid credential for bridgeID, or an *api.AuthError
// when the bridge is not paired or its credential was invalidated.
func (m *Manager) Credential(bridgeID string) (api.Credential, error) {
	id := api.NormalizeBridgeID(bridgeID)

	m.mu.RLock()
	defer m.mu.RUnlock()

	e := m.entries[id]
	switch {
	case e == nil:
		return api.Credential{}, &api.AuthError{Kind: api.AuthUnpaired, BridgeID: id}
	case e.state == StatePaired:
		return e.cred, nil
	case e.state == StateInvalidated:
		return api.Credential{}, &api.AuthError{Kind: api.AuthInvalidated, BridgeID: id}
	case e.state == StatePairing && e.before != nil && e.before.state == StateInvalidated:
		return api.Credential{}, &api.AuthError{Kind: api.AuthInvalidated, BridgeID: id}
	default:
		return api.Credential{}, &api.AuthError{Kind: api.AuthUnpaired, BridgeID: id}
	}
}

// Invalidate marks cred as rejected. Only the credential currently held for
// its bridge is affected, so a late rejection of an older key never removes
// a newer one. It reports whether the state changed.
func (m *Manager) Invalidate(cred api.Credential) bool {
	id := api.NormalizeBridgeID(cred.BridgeID)

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.entries[id]
	if current == nil || current.state != StatePaired || current.cred.Key != cred.Key {
		return false
	}

	m.entries[id] = &entry{state: StateInvalidated, cred: current.cred, generation: current.generation + 1}
	m.logTransition(id, current, StateInvalidated)
	m.logger.Warn("credential invalidated", observability.Field{Key: "bridge_id", Value: id})

	return true
}

// Restore installs a previously issued credential, for example one loaded
// from a file by the caller.
func (m *Manager) Restore(cred api.Credential) error {
	cred.BridgeID = api.NormalizeBridgeID(cred.BridgeID)
	if !cred.Valid() {
		return errors.Wrap(api.ErrInvalidRequest, "credential needs a bridge id and a key")
	}
	if cred.IssuedAt.IsZero() {
		cred.IssuedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.entries[cred.BridgeID]
	next := &entry{state: StatePaired, cred: cred}
	if current != nil {
		next.generation = current.generation + 1
	}
	m.entries[cred.BridgeID] = next
	m.logTransition(cred.BridgeID, current, StatePaired)

	return nil
}

// Forget drops everything known about bridgeID.
func (m *Manager) Forget(bridgeID string) {
	id := api.NormalizeBridgeID(bridgeID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.entries[id]; ok {
		delete(m.entries, id)
		m.logTransition(id, current, StateUnpaired)
	}
}

// State returns the pairing state of bridgeID.
func (m *Manager) State(bridgeID string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e := m.entries[api.NormalizeBridgeID(bridgeID)]; e != nil {
		return e.state
	}

	return StateUnpaired
}

// Snapshot lists all known bridges, ordered by id.
func (m *Manager) Snapshot() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.entries))
	for id, e := range m.entries {
		entries = append(entries, Entry{BridgeID: id, State: e.state, IssuedAt: e.cred.IssuedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BridgeID < entries[j].BridgeID })

	return entries
}

// logTransition must be called with mu held.
func (m *Manager) logTransition(id string, from *entry, to State) {
	previous := StateUnpaired
	if from != nil {
		previous = from.state
	}
	if previous == to {
		return
	}

	m.logger.Info("pairing state changed",
		observability.Field{Key: "bridge_id", Value: id},
		observability.Field{Key: "from", Value: previous.String()},
		observability.Field{Key: "to", Value: to.String()},
	)
}

package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/grandcat/zeroconf"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/observability"
)

// mDNS service advertised by Hue bridges.
const (
	ServiceType   = "_hue._tcp"
	ServiceDomain = "local."

	// DefaultMDNSTimeout bounds one browse.
	DefaultMDNSTimeout = 5 * time.Second

	// SourceMDNS is the Bridge.Source of bridges found over mDNS.
	SourceMDNS = "mdns"

	defaultBridgePort = 443
)

// BrowseFunc starts an mDNS browse and delivers entries until ctx is done.
// It has the shape of (*zeroconf.Resolver).Browse: it returns once the
// browse is running and closes entries when it stops.
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// MDNSConfig configures an MDNS discoverer.
type MDNSConfig struct {
	// Timeout bounds one browse. Default: 5s.
	Timeout time.Duration

	// Browse replaces the zeroconf resolver. Used by tests.
	Browse BrowseFunc

	Logger  observability.Logger
	Metrics observability.MetricsRecorder
}

// MDNS discovers bridges advertising _hue._tcp on the local network.
type MDNS struct {
	timeout time.Duration
	browse  BrowseFunc
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

// NewMDNS creates an mDNS discoverer.
func NewMDNS(cfg MDNSConfig) *MDNS {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMDNSTimeout
	}
	if cfg.Browse == nil {
		cfg.Browse = zeroconfBrowse
	}

	return &MDNS{
		timeout: cfg.Timeout,
		browse:  cfg.Browse,
		logger:  observability.OrNoop(cfg.Logger),
		metrics: observability.MetricsOrNoop(cfg.Metrics),
	}
}

func zeroconfBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to create mDNS resolver"), api.ErrNetworkUnavailable)
	}

	//nolint:wrapcheck // wrapped by Discover
	return resolver.Browse(ctx, service, domain, entries)
}

// Discover browses for the configured timeout and returns every bridge
// that answered. Silence is an empty result, not an error. Cancelling ctx
// stops the browse and returns context.Canceled.
func (m *MDNS) Discover(ctx context.Context) ([]api.Bridge, error) {
	start := time.Now()

	browseCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	collector := NewCollector()
	done := make(chan struct{})

	go func() {
		defer close(done)
		m.consume(browseCtx, entries, collector)
	}()

	if err := m.browse(browseCtx, ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		<-done

		m.logger.Error("mDNS browse failed", observability.Field{Key: "error", Value: err.Error()})
		m.metrics.RecordError("discovery_mdns", "network_unavailable")

		if errors.Is(err, api.ErrNetworkUnavailable) {
			return nil, err
		}
		return nil, errors.Mark(errors.Wrap(err, "mDNS browse failed"), api.ErrNetworkUnavailable)
	}

	<-browseCtx.Done()
	<-done
	// Answers buffered when the browse window closed still count.
	m.drain(entries, collector)

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, errors.Wrap(ctx.Err(), "mDNS discovery canceled")
	}

	bridges := collector.Bridges()
	m.metrics.RecordDiscovery(SourceMDNS, len(bridges), time.Since(start))

	return bridges, nil
}

func (m *MDNS) consume(ctx context.Context, entries <-chan *zeroconf.ServiceEntry, collector *Collector) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			m.collect(entry, collector)
		}
	}
}

// drain collects the entries already buffered without waiting for more.
func (m *MDNS) drain(entries <-chan *zeroconf.ServiceEntry, collector *Collector) {
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			m.collect(entry, collector)
		default:
			return
		}
	}
}

func (m *MDNS) collect(entry *zeroconf.ServiceEntry, collector *Collector) {
	bridge, ok := parseServiceEntry(entry)
	if !ok {
		m.logger.Debug("ignoring mDNS entry without bridge id",
			observability.Field{Key: "host", Value: hostName(entry)},
		)
		return
	}

	logChange(m.logger, collector.Add(bridge), bridge)
}

// parseServiceEntry turns an mDNS answer into a bridge. IPv4 addresses are
// preferred; entries without a bridgeid TXT record or an address are
// rejected.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (api.Bridge, bool) {
	if entry == nil {
		return api.Bridge{}, false
	}

	txt := parseTXT(entry.Text)

	id := api.NormalizeBridgeID(txt["bridgeid"])
	if id == "" {
		return api.Bridge{}, false
	}

	var address string
	switch {
	case len(entry.AddrIPv4) > 0:
		address = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		address = entry.AddrIPv6[0].String()
	default:
		return api.Bridge{}, false
	}

	port := entry.Port
	if port == defaultBridgePort {
		port = 0
	}

	return api.Bridge{
		ID:      id,
		Address: address,
		Port:    port,
		Name:    entry.Instance,
		Source:  SourceMDNS,
	}, true
}

func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records))
	for _, record := range records {
		key, value, ok := strings.Cut(record, "=")
		if !ok {
			continue
		}
		txt[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return txt
}

func hostName(entry *zeroconf.ServiceEntry) string {
	if entry == nil {
		return ""
	}
	return strings.TrimSuffix(entry.HostName, ".")
}

func logChange(logger observability.Logger, change Change, b api.Bridge) {
	switch change {
	case ChangeAdded:
		logger.Debug("bridge discovered", bridgeFields(b)...)
	case ChangeUpdated:
		logger.Debug("bridge address changed", bridgeFields(b)...)
	case ChangeNone:
	}
}

func bridgeFields(b api.Bridge) []observability.Field {
	return []observability.Field{
		{Key: "bridge_id", Value: b.ID},
		{Key: "address", Value: b.HostPort()},
		{Key: "source", Value: b.Source},
	}
}


// Package discovery finds Hue bridges on the local network.
//
// MDNS browses the _hue._tcp service, Remote asks the public discovery
// endpoint, and Composite runs several sources at once. Every source
// funnels its answers through a Collector, so a bridge reported twice (or
// by two sources) appears once, carrying its most recent address.
//
// Collect bounds one scan in time. Watcher repeats scans and reports
// bridges that appear, move or disappear:
//
//	w := discovery.NewWatcher(discovery.NewMDNS(discovery.MDNSConfig{}), discovery.WatcherConfig{})
//	events, stop := w.Watch(ctx)
//	defer stop()
//	for ev := range events {
//		fmt.Println(ev.Type, ev.Bridge.ID, ev.Bridge.Address)
//	}
package discovery

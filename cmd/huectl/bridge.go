package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/lexfrei/go-hue/api"
)

// selectedBridge resolves the bridge named by --bridge, the configuration
// or, failing both, the only paired bridge.
func (a *app) selectedBridge(ctx context.Context) (api.Bridge, error) {
	selector := bridgeFlag
	if selector == "" {
		selector = a.cfg.Bridge.ID
	}
	if selector == "" {
		selector = a.cfg.Bridge.Address
	}

	if stored, ok := a.creds.Find(selector); ok {
		return stored.Bridge(), nil
	}

	if selector == "" {
		return api.Bridge{}, errors.New("no bridge selected: use --bridge, or run 'huectl discover' and 'huectl pair'")
	}

	bridge, err := a.client.Identify(ctx, selector)
	if err != nil {
		return api.Bridge{}, errors.Wrapf(err, "bridge %q is not paired and could not be reached", selector)
	}

	log.Debug().Str("bridge_id", bridge.ID).Str("address", bridge.HostPort()).Msg("Bridge identified")

	return bridge, nil
}

// remember stores a freshly issued credential.
func (a *app) remember(bridge api.Bridge, cred api.Credential) error {
	a.creds.Put(bridge, cred)
	if err := a.creds.Save(a.cfg.Credentials); err != nil {
		return errors.Wrap(err, "paired, but the key could not be saved")
	}

	log.Info().Str("bridge_id", cred.BridgeID).Str("path", a.cfg.Credentials).Msg("Credential saved")

	return nil
}

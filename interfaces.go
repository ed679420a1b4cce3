package hue

import (
	"context"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/session"
)

// HueClient defines the operations of Client.
// Consumers can depend on it to substitute a fake in their own tests.
//
// Example usage with testify/mock:
//
//	type MockClient struct {
//	    mock.Mock
//	}
//
//	func (m *MockClient) Lights(ctx context.Context, bridge api.Bridge) ([]api.Light, error) {
//	    args := m.Called(ctx, bridge)
//	    return args.Get(0).([]api.Light), args.Error(1)
//	}
//
//nolint:revive // HueClient is intentionally explicit to avoid confusion with Client struct
type HueClient interface { //nolint:interfacebloat // mirrors every Client operation
	// Discovery and pairing

	// Discover scans the network for bridges.
	Discover(ctx context.Context) ([]api.Bridge, error)

	// Identify reads the id and name of the bridge at address.
	Identify(ctx context.Context, address string) (api.Bridge, error)

	// Pair obtains an application key, waiting for the link button.
	Pair(ctx context.Context, bridge api.Bridge) (api.Credential, error)

	// Restore installs a previously issued credential.
	Restore(cred api.Credential) error

	// Forget drops the credential of a bridge.
	Forget(bridgeID string)

	// Sessions lists the pairing state of every known bridge.
	Sessions() []session.Entry

	// Reads

	// Config retrieves the bridge configuration.
	Config(ctx context.Context, bridge api.Bridge) (*api.BridgeConfig, error)

	// Lights lists every light.
	Lights(ctx context.Context, bridge api.Bridge) ([]api.Light, error)

	// Light retrieves one light with its state and capabilities.
	Light(ctx context.Context, bridge api.Bridge, lightID string) (*api.Light, error)

	// Groups lists every group.
	Groups(ctx context.Context, bridge api.Bridge) ([]api.Group, error)

	// Group retrieves one group.
	Group(ctx context.Context, bridge api.Bridge, groupID string) (*api.Group, error)

	// Scenes lists every scene.
	Scenes(ctx context.Context, bridge api.Bridge) ([]api.Scene, error)

	// Writes

	// SetState changes the state of one light.
	SetState(ctx context.Context, bridge api.Bridge, lightID string, state api.LightState) (*api.BatchResult, error)

	// SetGroupAction changes the state of every light in a group.
	SetGroupAction(ctx context.Context, bridge api.Bridge, groupID string, action api.GroupAction) (*api.BatchResult, error)

	// ActivateScene recalls a scene on a group.
	ActivateScene(ctx context.Context, bridge api.Bridge, groupID, sceneID string) (*api.BatchResult, error)

	// RenameLight changes the name of a light.
	RenameLight(ctx context.Context, bridge api.Bridge, lightID, name string) (*api.BatchResult, error)

	// Close releases idle connections.
	Close()
}

// Compile-time check to ensure Client implements HueClient interface.
var _ HueClient = (*Client)(nil)

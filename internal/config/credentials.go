package config

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/lexfrei/go-hue/api"
)

// StoredCredential is one paired bridge as kept on disk.
type StoredCredential struct {
	BridgeID  string    `yaml:"bridge_id"`
	Name      string    `yaml:"name,omitempty"`
	Address   string    `yaml:"address"`
	Port      int       `yaml:"port,omitempty"`
	Key       string    `yaml:"key"`
	ClientKey string    `yaml:"client_key,omitempty"`
	IssuedAt  time.Time `yaml:"issued_at"`
}

// Credential returns the key for the session manager.
func (s StoredCredential) Credential() api.Credential {
	return api.Credential{BridgeID: s.BridgeID, Key: s.Key, ClientKey: s.ClientKey, IssuedAt: s.IssuedAt}
}

// Bridge returns the last known address of the bridge.
func (s StoredCredential) Bridge() api.Bridge {
	return api.Bridge{ID: s.BridgeID, Address: s.Address, Port: s.Port, Name: s.Name, Source: "credentials"}
}

// Credentials is the content of the credentials file.
type Credentials struct {
	Bridges []StoredCredential `yaml:"bridges"`
}

// DefaultCredentialsPath returns the per-user credentials file location.
func DefaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "huectl-credentials.yaml"
	}
	return filepath.Join(dir, "huectl", "credentials.yaml")
}

// LoadCredentials reads the credentials file. A missing file is empty.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read credentials")
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrapf(err, "failed to parse credentials %s", path)
	}

	for i := range creds.Bridges {
		creds.Bridges[i].BridgeID = api.NormalizeBridgeID(creds.Bridges[i].BridgeID)
	}

	return &creds, nil
}

// Save writes the file with mode 0600, replacing it atomically.
func (c *Credentials) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create credentials directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode credentials")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".credentials-*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to create credentials file")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to restrict credentials file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write credentials")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write credentials")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "failed to replace credentials file")
	}

	return nil
}

// Put stores or replaces the credential of bridge.
func (c *Credentials) Put(bridge api.Bridge, cred api.Credential) {
	stored := StoredCredential{
		BridgeID:  api.NormalizeBridgeID(cred.BridgeID),
		Name:      bridge.Name,
		Address:   bridge.Address,
		Port:      bridge.Port,
		Key:       cred.Key,
		ClientKey: cred.ClientKey,
		IssuedAt:  cred.IssuedAt.UTC(),
	}

	for i := range c.Bridges {
		if c.Bridges[i].BridgeID == stored.BridgeID {
			c.Bridges[i] = stored
			return
		}
	}

	c.Bridges = append(c.Bridges, stored)
	sort.Slice(c.Bridges, func(i, j int) bool { return c.Bridges[i].BridgeID < c.Bridges[j].BridgeID })
}

// Find returns the credential matching a bridge id or address. An empty
// selector matches the only stored bridge.
func (c *Credentials) Find(selector string) (StoredCredential, bool) {
	if selector == "" {
		if len(c.Bridges) == 1 {
			return c.Bridges[0], true
		}
		return StoredCredential{}, false
	}

	id := api.NormalizeBridgeID(selector)
	for _, b := range c.Bridges {
		if b.BridgeID == id || b.Address == selector || b.Bridge().HostPort() == selector {
			return b, true
		}
	}

	return StoredCredential{}, false
}

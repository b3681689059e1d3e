package panelctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultAPIURL is used when neither the profile nor a flag names an API.
const DefaultAPIURL = "http://localhost:8080"

// Profile is the persisted client state: where the API lives and the current
// session token.
type Profile struct {
	APIURL string `toml:"api_url"`
	Login  string `toml:"login,omitempty"`
	Token  string `toml:"token,omitempty"`
}

// ProfilePath returns the profile location. PANELCTL_CONFIG overrides the
// default of $XDG_CONFIG_HOME/panelctl.toml (~/.config/panelctl.toml).
func ProfilePath() (string, error) {
	if p := os.Getenv("PANELCTL_CONFIG"); p != "" {
		return p, nil
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "panelctl.toml"), nil
}

// LoadProfile reads the profile at path. A missing file yields an empty
// profile pointing at DefaultAPIURL.
func LoadProfile(path string) (*Profile, error) {
	p := &Profile{}
	if _, err := toml.DecodeFile(path, p); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read profile %s: %w", path, err)
		}
	}
	if p.APIURL == "" {
		p.APIURL = DefaultAPIURL
	}
	return p, nil
}

// SaveProfile writes the profile to path with owner-only permissions.
func SaveProfile(path string, p *Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

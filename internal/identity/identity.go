// Package identity manages local agent profiles. Each profile carries the wallet
// address and API credential for one marketplace agent; exactly one profile is
// active at a time (recorded in the durable store).
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
)

// Profile is one locally known agent identity.
type Profile struct {
	Name        string `yaml:"name"`
	Wallet      string `yaml:"wallet"`
	APIKey      string `yaml:"api_key"`
	Description string `yaml:"description,omitempty"`
}

// Slug sanitizes a profile name for filesystem use (spaces -> _, lowercase).
func Slug(name string) string {
	safe := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if safe == "" {
		safe = "default"
	}
	return safe
}

// ProfilePath returns the path to a profile file: <home>/agents/<name>.yaml.
func ProfilePath(home, name string) string {
	return filepath.Join(config.AgentsDir(home), Slug(name)+".yaml")
}

// Load reads a profile from <home>/agents/<name>.yaml. Returns (nil, nil) when the
// profile does not exist.
func Load(home, name string) (*Profile, error) {
	data, err := os.ReadFile(ProfilePath(home, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = Slug(name)
	}
	return &p, nil
}

// Save writes the profile to <home>/agents/<name>.yaml (0600: it holds a credential).
func Save(home string, p *Profile) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if strings.TrimSpace(p.Wallet) == "" {
		return fmt.Errorf("profile wallet is required")
	}
	if err := os.MkdirAll(config.AgentsDir(home), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(ProfilePath(home, p.Name), data, 0o600)
}

// List returns all profiles under <home>/agents, ordered by name. Unparseable
// files are skipped.
func List(home string) ([]Profile, error) {
	entries, err := os.ReadDir(config.AgentsDir(home))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Profile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".yaml")
		p, err := Load(home, name)
		if err != nil || p == nil {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ActiveStore is the subset of the durable store identity needs.
type ActiveStore interface {
	GetActiveAgent() (string, error)
	SetActiveAgent(name string) error
}

// ErrNoActiveAgent reports that no usable active profile is recorded.
var ErrNoActiveAgent = errors.New("no active agent; run `sentinel identity use <name>`")

// Active loads the currently active profile. Every path that cannot produce a
// usable profile returns an error; callers never receive a nil profile with a
// nil error.
func Active(home string, st ActiveStore) (*Profile, error) {
	name, err := st.GetActiveAgent()
	if err != nil || name == "" {
		return nil, ErrNoActiveAgent
	}
	p, err := Load(home, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("active agent %q has no profile file: %w", name, ErrNoActiveAgent)
	}
	return p, nil
}

// Use marks the named profile active. The caller must first verify no seller
// runtime is live for the previous identity (internal/daemon owns that check).
func Use(home string, st ActiveStore, name string) (*Profile, error) {
	p, err := Load(home, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("unknown agent profile %q", name)
	}
	if err := st.SetActiveAgent(Slug(name)); err != nil {
		return nil, err
	}
	return p, nil
}

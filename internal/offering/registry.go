package offering

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/handler"
)

// ErrNotFound means the offering does not exist in the identity's namespace
// (or its files were removed after registration).
var ErrNotFound = errors.New("offering not found")

// ErrInvalidHandlers means the handler manifest cannot produce a usable
// capability set.
var ErrInvalidHandlers = errors.New("invalid offering handlers")

// Offering is a loaded offering: config plus a freshly built capability set.
type Offering struct {
	Config   Config
	Handlers handler.Set
	Dir      string
}

// Registry resolves offerings from the per-identity namespace under home.
// An offering belongs to exactly one identity; lookups never fall back across
// identities.
type Registry struct {
	Home string
}

// Dir returns the directory holding one offering's files.
func (r *Registry) Dir(identity, name string) string {
	return filepath.Join(config.OfferingsDir(r.Home, identity), name)
}

// Load resolves an offering by name within the identity's namespace and builds
// its handler set fresh. It runs on every inbound job event: no caching, so
// handler edits in a long-lived runtime take effect immediately. Load does not
// re-run registration validation; a registered offering is trusted, and files
// deleted or corrupted since registration surface as ErrNotFound.
func (r *Registry) Load(name, identity string) (*Offering, error) {
	if name == "" || identity == "" {
		return nil, fmt.Errorf("offering %q (identity %q): %w", name, identity, ErrNotFound)
	}
	dir := r.Dir(identity, name)
	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("offering %q (identity %q): %w", name, identity, ErrNotFound)
	}

	set, err := handler.Subprocess{Command: cfg.Handler.Command, Dir: dir}.Load(cfg.Handler.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("offering %q: %w: %v", name, ErrInvalidHandlers, err)
	}
	if set.Execute == nil {
		return nil, fmt.Errorf("offering %q: %w: execute capability missing", name, ErrInvalidHandlers)
	}
	return &Offering{Config: cfg, Handlers: set, Dir: dir}, nil
}

// List returns the offering names present in the identity's namespace.
func (r *Registry) List(identity string) ([]string, error) {
	entries, err := os.ReadDir(config.OfferingsDir(r.Home, identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.Dir(identity, e.Name()), ConfigFileName)); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// ValidateForRegistration loads the named offering's config and applies the
// strict registration rules, reporting every violation found.
func (r *Registry) ValidateForRegistration(name, identity string) (Config, error) {
	dir := r.Dir(identity, name)
	cfg, err := LoadConfig(dir)
	if err != nil {
		return Config{}, fmt.Errorf("offering %q (identity %q): %w", name, identity, ErrNotFound)
	}
	if cfg.Name != name {
		return Config{}, fmt.Errorf("offering directory %q does not match config name %q", name, cfg.Name)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("offering %q is not registrable:\n%w", name, err)
	}
	return cfg, nil
}

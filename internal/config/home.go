package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

type homeKey struct{}

// WithHome stores the sentinel home path in the context.
func WithHome(ctx context.Context, home string) context.Context {
	return context.WithValue(ctx, homeKey{}, home)
}

// HomeFrom returns the sentinel home path from the context, if set.
func HomeFrom(ctx context.Context) (string, bool) {
	v := ctx.Value(homeKey{})
	s, ok := v.(string)
	return s, ok
}

// MustHomeFrom returns the home path from the context, or panics if not set.
func MustHomeFrom(ctx context.Context) string {
	if h, ok := HomeFrom(ctx); ok && h != "" {
		return h
	}
	panic("sentinel home missing from context")
}

// ResolveHome returns the sentinel home directory (override, SENTINEL_HOME, or default ~/.sentinel).
func ResolveHome(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}
	if env := os.Getenv("SENTINEL_HOME"); env != "" {
		return filepath.Clean(env), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine user home directory")
	}
	return filepath.Join(home, ".sentinel"), nil
}

// AgentsDir returns the per-identity namespace root: <home>/agents.
func AgentsDir(home string) string {
	return filepath.Join(home, "agents")
}

// OfferingsDir returns the offering namespace for one identity:
// <home>/agents/<identity>/offerings.
func OfferingsDir(home, identity string) string {
	return filepath.Join(AgentsDir(home), identity, "offerings")
}

// StateDir returns the durable-store directory: <home>/state.
func StateDir(home string) string {
	return filepath.Join(home, "state")
}

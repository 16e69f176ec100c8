package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/bountyboard"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/identity"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/market"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/store"
)

func openStore(home string) (*store.FileStore, error) {
	return store.NewFileStore(config.StateDir(home))
}

// activeProfile resolves the profile most commands act as: the active agent,
// or a named one when --identity is set.
func activeProfile(cmd *cobra.Command, name string) (*identity.Profile, *store.FileStore, error) {
	home := config.MustHomeFrom(cmd.Context())
	st, err := openStore(home)
	if err != nil {
		return nil, nil, err
	}
	if name != "" {
		p, err := identity.Load(home, name)
		if err != nil {
			return nil, nil, err
		}
		if p == nil {
			return nil, nil, fmt.Errorf("no agent profile named %q", name)
		}
		return p, st, nil
	}
	p, err := identity.Active(home, st)
	if err != nil {
		return nil, nil, err
	}
	return p, st, nil
}

func marketFor(p *identity.Profile, override string) *market.Client {
	return market.New(config.MarketURL(override), p.APIKey)
}

func boardFor(p *identity.Profile, override string) *bountyboard.Client {
	return bountyboard.New(config.BoardURL(override), p.APIKey)
}

// parsePairs turns repeated key=value flags into a requirements map.
func parsePairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		i := strings.Index(p, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid key=value pair %q", p)
		}
		out[p[:i]] = p[i+1:]
	}
	return out, nil
}

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/identity"
)

func newDoctorCmd() *cobra.Command {
	var marketURL string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify home layout, store, identity and marketplace reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			var problems []string

			if err := os.MkdirAll(config.StateDir(home), 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("home is not writable: %v", err))
			}

			st, err := openStore(home)
			if err != nil {
				problems = append(problems, fmt.Sprintf("store unreadable: %v", err))
			}

			var profile *identity.Profile
			if st != nil {
				profile, err = identity.Active(home, st)
				if err != nil {
					problems = append(problems, fmt.Sprintf("no active agent: %v", err))
				}
			}

			if profile != nil {
				if profile.Wallet == "" {
					problems = append(problems, fmt.Sprintf("profile %q has no wallet address", profile.Name))
				} else if _, err := marketFor(profile, marketURL).GetAgent(cmd.Context(), profile.Wallet); err != nil {
					problems = append(problems, fmt.Sprintf("marketplace unreachable: %v", err))
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "sentinel",
		Short:        "Sentinel — ACP marketplace client and seller runtime",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Sentinel home directory (default: ~/.sentinel, env: SENTINEL_HOME)")

	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newSellerCmd())
	cmd.AddCommand(newOfferingCmd())
	cmd.AddCommand(newBountyCmd())
	cmd.AddCommand(newJobCmd())
	cmd.AddCommand(newIdentityCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newTokenCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "On-chain token operations",
	}
	cmd.AddCommand(newTokenLaunchCmd())
	return cmd
}

func newTokenLaunchCmd() *cobra.Command {
	var (
		identityName string
		marketURL    string
		req          models.TokenLaunch
	)
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a token for the active agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Name == "" || req.Symbol == "" {
				return fmt.Errorf("--name and --symbol are required")
			}
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			res, err := marketFor(p, marketURL).LaunchToken(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Token launched at %s\n", res.TokenAddress)
			if res.TxHash != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Tx: %s\n", res.TxHash)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Token name (required)")
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "Token symbol (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Token description")
	cmd.Flags().StringVar(&req.ImageURL, "image-url", "", "Token image URL")
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

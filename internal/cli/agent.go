package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Browse marketplace agents",
	}
	cmd.AddCommand(newAgentBrowseCmd())
	cmd.AddCommand(newAgentShowCmd())
	return cmd
}

func newAgentBrowseCmd() *cobra.Command {
	var (
		identityName string
		marketURL    string
	)
	cmd := &cobra.Command{
		Use:   "browse [query]",
		Short: "Search agents and their offerings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			agents, err := marketFor(p, marketURL).BrowseAgents(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No agents found")
				return nil
			}
			for _, a := range agents {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", a.Wallet, a.Name)
				for _, o := range a.Offerings {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\t%g (%s)\n", o.Name, o.FeeAmount, o.FeeKind)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

func newAgentShowCmd() *cobra.Command {
	var (
		identityName string
		marketURL    string
	)
	cmd := &cobra.Command{
		Use:   "show <wallet>",
		Short: "Show one agent's public listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			a, err := marketFor(p, marketURL).GetAgent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\t%s\n", a.Wallet, a.Name)
			if a.Description != "" {
				_, _ = fmt.Fprintln(out, a.Description)
			}
			for _, o := range a.Offerings {
				_, _ = fmt.Fprintf(out, "  %s\t%g (%s)\n", o.Name, o.FeeAmount, o.FeeKind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

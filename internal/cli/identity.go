package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/daemon"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/identity"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage agent profiles (wallet, API key)",
	}
	cmd.AddCommand(newIdentityAddCmd())
	cmd.AddCommand(newIdentityUseCmd())
	cmd.AddCommand(newIdentityListCmd())
	cmd.AddCommand(newIdentityShowCmd())
	return cmd
}

func newIdentityAddCmd() *cobra.Command {
	var p identity.Profile
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save an agent profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			p.Name = args[0]
			if err := identity.Save(home, &p); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q (%s)\n", p.Name, identity.ProfilePath(home, p.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Wallet, "wallet", "", "Agent wallet address (required)")
	cmd.Flags().StringVar(&p.APIKey, "api-key", "", "Marketplace API key")
	cmd.Flags().StringVar(&p.Description, "description", "", "Profile description")
	return cmd
}

func newIdentityUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the active agent profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			// An identity switch under a live runtime would leave the runtime
			// acting as the old agent while everything else acts as the new one.
			if st, err := daemon.Status(cmd.Context(), home); err == nil && st.Running {
				return fmt.Errorf("seller runtime is running as %q (pid %d); stop it before switching identity", st.Identity, st.PID)
			}

			st, err := openStore(home)
			if err != nil {
				return err
			}
			p, err := identity.Use(home, st, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active agent: %s (%s)\n", p.Name, p.Wallet)
			return nil
		},
	}
}

func newIdentityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved agent profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			profiles, err := identity.List(home)
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No agent profiles (use `sentinel identity add`)")
				return nil
			}

			active := ""
			if st, err := openStore(home); err == nil {
				if p, err := identity.Active(home, st); err == nil {
					active = p.Name
				}
			}
			for _, p := range profiles {
				marker := " "
				if p.Name == active {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, p.Name, p.Wallet)
			}
			return nil
		},
	}
}

func newIdentityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a profile (default: the active agent)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			p, _, err := activeProfile(cmd, name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Name:        %s\n", p.Name)
			_, _ = fmt.Fprintf(out, "Wallet:      %s\n", p.Wallet)
			if p.Description != "" {
				_, _ = fmt.Fprintf(out, "Description: %s\n", p.Description)
			}
			if p.APIKey != "" {
				_, _ = fmt.Fprintln(out, "API key:     (set)")
			}
			return nil
		},
	}
}

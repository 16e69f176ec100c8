package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/identity"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/offering"
)

func newOfferingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offering",
		Short: "Manage the active agent's sellable offerings",
	}
	cmd.AddCommand(newOfferingInitCmd())
	cmd.AddCommand(newOfferingValidateCmd())
	cmd.AddCommand(newOfferingRegisterCmd())
	cmd.AddCommand(newOfferingDelistCmd())
	cmd.AddCommand(newOfferingListCmd())
	return cmd
}

func newOfferingInitCmd() *cobra.Command {
	var identityName string
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Scaffold a new offering (config + handler script)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			home := config.MustHomeFrom(cmd.Context())
			dir, err := offering.Scaffold(home, identity.Slug(p.Name), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scaffolded offering %q in %s\n", args[0], dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	return cmd
}

func newOfferingValidateCmd() *cobra.Command {
	var identityName string
	cmd := &cobra.Command{
		Use:   "validate <name>",
		Short: "Validate an offering's config and handlers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			reg := &offering.Registry{Home: config.MustHomeFrom(cmd.Context())}
			if _, err := reg.ValidateForRegistration(args[0], identity.Slug(p.Name)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Offering %q is valid\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	return cmd
}

func newOfferingRegisterCmd() *cobra.Command {
	var (
		identityName string
		marketURL    string
	)
	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Validate an offering and list it on the marketplace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			reg := &offering.Registry{Home: config.MustHomeFrom(cmd.Context())}
			cfg, err := reg.ValidateForRegistration(args[0], identity.Slug(p.Name))
			if err != nil {
				return err
			}
			if err := marketFor(p, marketURL).RegisterOffering(cmd.Context(), cfg.Listing()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered offering %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

func newOfferingDelistCmd() *cobra.Command {
	var (
		identityName string
		marketURL    string
	)
	cmd := &cobra.Command{
		Use:   "delist <name>",
		Short: "Remove an offering listing from the marketplace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			if err := marketFor(p, marketURL).DelistOffering(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Delisted offering %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

func newOfferingListCmd() *cobra.Command {
	var identityName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally configured offerings",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			reg := &offering.Registry{Home: config.MustHomeFrom(cmd.Context())}
			names, err := reg.List(identity.Slug(p.Name))
			if err != nil {
				return err
			}
			if len(names) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No offerings configured")
				return nil
			}
			for _, n := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/daemon"
)

func newSellerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seller",
		Short: "Run and inspect the seller runtime",
	}
	cmd.AddCommand(newSellerStartCmd())
	cmd.AddCommand(newSellerStopCmd())
	cmd.AddCommand(newSellerStatusCmd())
	// Hidden internal subcommand used by `seller start` for background mode.
	cmd.AddCommand(newSellerRunCmd())
	return cmd
}

func sellerFlags(cmd *cobra.Command, opts *daemon.StartOptions) {
	cmd.Flags().StringVar(&opts.Identity, "identity", "", "Agent profile to run as (default: active agent)")
	cmd.Flags().StringVar(&opts.HealthAddr, "health-addr", "", "Health/metrics listen address (default 127.0.0.1:3648)")
	cmd.Flags().StringVar(&opts.PprofAddr, "pprof", "", "Enable pprof on address (e.g. 127.0.0.1:6060)")
	cmd.Flags().StringVar(&opts.MarketURL, "market-url", "", "Marketplace API base URL (env: SENTINEL_MARKET_URL)")
	cmd.Flags().StringVar(&opts.EventsURL, "events-url", "", "Job event broker URL (env: SENTINEL_EVENTS_URL)")
}

func newSellerStartCmd() *cobra.Command {
	var (
		opts       daemon.StartOptions
		foreground bool
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the seller runtime for the active agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Home = config.MustHomeFrom(cmd.Context())
			if foreground {
				return daemon.StartForeground(cmd.Context(), opts)
			}
			pid, err := daemon.StartBackground(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seller runtime started (pid %d)\n", pid)
			return nil
		},
	}
	sellerFlags(cmd, &opts)
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run in foreground (do not daemonize)")
	return cmd
}

func newSellerRunCmd() *cobra.Command {
	var opts daemon.StartOptions
	cmd := &cobra.Command{
		Use:    "run",
		Short:  "Run the seller runtime in the foreground",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Home = config.MustHomeFrom(cmd.Context())
			return daemon.StartForeground(cmd.Context(), opts)
		},
	}
	sellerFlags(cmd, &opts)
	return cmd
}

func newSellerStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running seller runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			stopped, err := daemon.Stop(cmd.Context(), home)
			if err != nil {
				return err
			}
			if !stopped {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Seller runtime is not running")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Seller runtime stopped")
			return nil
		},
	}
}

func newSellerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show seller runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := daemon.Status(cmd.Context(), home)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !st.Running {
				_, _ = fmt.Fprintln(out, "Seller runtime is not running")
				return nil
			}
			_, _ = fmt.Fprintf(out, "Running (pid %d)\n", st.PID)
			_, _ = fmt.Fprintf(out, "Identity: %s\n", st.Identity)
			_, _ = fmt.Fprintf(out, "Wallet:   %s\n", st.Wallet)
			if st.Addr != "" {
				_, _ = fmt.Fprintf(out, "Health:   http://%s/health\n", st.Addr)
			}
			if !st.StartedAt.IsZero() {
				_, _ = fmt.Fprintf(out, "Started:  %s\n", st.StartedAt.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

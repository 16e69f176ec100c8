package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/bounty"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

func newBountyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounty",
		Short: "Post bounties and manage their match lifecycle",
	}
	cmd.AddCommand(newBountyCreateCmd())
	cmd.AddCommand(newBountyReconcileCmd())
	cmd.AddCommand(newBountySelectCmd())
	cmd.AddCommand(newBountyStatusCmd())
	return cmd
}

func newBountyCreateCmd() *cobra.Command {
	var (
		identityName string
		boardURL     string
		req          bounty.CreateRequest
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a bounty on the board and track it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			b, err := bounty.Create(cmd.Context(), st, boardFor(p, boardURL), req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Bounty %s created (status %s)\n", b.BountyID, b.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Bounty title (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "What the bounty asks for")
	cmd.Flags().Float64Var(&req.Budget, "budget", 0, "Budget in marketplace currency (required)")
	cmd.Flags().StringVar(&req.Category, "category", models.CategoryDigital, "Bounty category: digital or physical")
	cmd.Flags().StringVar(&req.SourceChannel, "source", "", "Originating channel label")
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&boardURL, "board-url", "", "Bounty board API base URL")
	return cmd
}

func newBountyReconcileCmd() *cobra.Command {
	var (
		identityName string
		boardURL     string
		marketURL    string
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over all tracked bounties",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			r := &bounty.Reconciler{
				Store: st,
				Board: boardFor(p, boardURL),
				Jobs:  marketFor(p, marketURL),
			}
			sum, err := r.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&boardURL, "board-url", "", "Bounty board API base URL")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

func newBountySelectCmd() *cobra.Command {
	var (
		identityName string
		boardURL     string
		marketURL    string
		answerPairs  []string
	)
	cmd := &cobra.Command{
		Use:   "select <bounty-id> <candidate-id|none>",
		Short: "Hire a matched candidate, or reject the candidate set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			answers, err := parsePairs(answerPairs)
			if err != nil {
				return err
			}
			sel := &bounty.Selector{
				Store: st,
				Board: boardFor(p, boardURL),
				Jobs:  marketFor(p, marketURL),
			}
			res, err := sel.Select(cmd.Context(), args[0], args[1], answers)
			if err != nil {
				return err
			}
			if res.Status == models.BountyClaimed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Bounty %s claimed, job %d created\n", args[0], res.JobID)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Candidates rejected, bounty %s reopened\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&answerPairs, "answer", nil, "Requirement answer as key=value (repeatable)")
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&boardURL, "board-url", "", "Bounty board API base URL")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

func newBountyStatusCmd() *cobra.Command {
	var (
		identityName string
		boardURL     string
	)
	cmd := &cobra.Command{
		Use:   "status [bounty-id]",
		Short: "Show tracked bounties, or one bounty's remote match state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if len(args) == 1 {
				b, err := st.GetBounty(args[0])
				if err != nil {
					return fmt.Errorf("bounty %s: %w", args[0], err)
				}
				ms, err := boardFor(p, boardURL).GetMatchStatus(cmd.Context(), b.BountyID, b.PosterSecret)
				if err != nil {
					return err
				}
				return enc.Encode(map[string]any{"bounty": b, "remote": ms})
			}

			bounties, err := st.ListBounties()
			if err != nil {
				return err
			}
			if len(bounties) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tracked bounties")
				return nil
			}
			return enc.Encode(bounties)
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&boardURL, "board-url", "", "Bounty board API base URL")
	return cmd
}

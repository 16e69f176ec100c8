package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/market"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and create marketplace jobs",
	}
	cmd.AddCommand(newJobGetCmd())
	cmd.AddCommand(newJobCreateCmd())
	return cmd
}

func newJobGetCmd() *cobra.Command {
	var (
		identityName string
		marketURL    string
	)
	cmd := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Fetch a job's current phase and memo history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			job, err := marketFor(p, marketURL).GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(job)
		},
	}
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

func newJobCreateCmd() *cobra.Command {
	var (
		identityName     string
		marketURL        string
		provider         string
		offeringName     string
		budget           float64
		requirementPairs []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a job against a provider's offering",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" || offeringName == "" {
				return fmt.Errorf("--provider and --offering are required")
			}
			p, _, err := activeProfile(cmd, identityName)
			if err != nil {
				return err
			}
			requirements, err := parsePairs(requirementPairs)
			if err != nil {
				return err
			}
			jobID, err := marketFor(p, marketURL).CreateJob(cmd.Context(), market.CreateJobRequest{
				ProviderAddress: provider,
				Offering:        offeringName,
				Requirements:    requirements,
				Budget:          budget,
				Nonce:           uuid.NewString(),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Job %d created\n", jobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider wallet address (required)")
	cmd.Flags().StringVar(&offeringName, "offering", "", "Offering name (required)")
	cmd.Flags().Float64Var(&budget, "budget", 0, "Budget in marketplace currency")
	cmd.Flags().StringArrayVar(&requirementPairs, "requirement", nil, "Requirement as key=value (repeatable)")
	cmd.Flags().StringVar(&identityName, "identity", "", "Agent profile (default: active agent)")
	cmd.Flags().StringVar(&marketURL, "market-url", "", "Marketplace API base URL")
	return cmd
}

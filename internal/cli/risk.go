package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/congo-pay/fraudguard/internal/risk"
)

func newRiskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "risk <probability>",
		Short: "Show the risk level for a fraud probability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("probability must be a number: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), risk.Classify(p))
			return nil
		},
	}
}

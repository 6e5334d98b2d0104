package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/prewutils/internal/names"
)

func newMinimizersCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "minimizers CHAIN",
		Short:   "Parse a minimizer chain and print its stages",
		Example: `  prewutils minimizers "Simplex(1000,1000,0.01)->Migrad"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := names.ParseMinimizerChain(args[0])
			if err != nil {
				return err
			}
			for i, stage := range chain {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, stage)
			}
			return nil
		},
	}
}

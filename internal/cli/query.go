package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/web3-frozen/yield-engine/internal/analyzer"
	"github.com/web3-frozen/yield-engine/internal/handler"
)

var (
	analyzeToken  string
	analyzeAmount float64
	analyzeMinAPY float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find the best yield for a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeToken == "" {
			return fmt.Errorf("--token is required")
		}
		if analyzeAmount < 0 || analyzeMinAPY < 0 {
			return fmt.Errorf("--amount and --min-apy must not be negative")
		}

		resp := getServices().analyzer.Analyze(cmd.Context(), analyzer.Request{
			Token:  analyzeToken,
			Amount: analyzeAmount,
			MinAPY: analyzeMinAPY,
		})
		return printJSON(cmd, resp)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Show vault deposits and withdrawals for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, tier := getServices().history.History(cmd.Context(), args[0])
		getServices().logger.Debug().Str("tier", tier).Msg("history source")
		return printJSON(cmd, resp)
	},
}

var yieldsCmd = &cobra.Command{
	Use:   "yields",
	Short: "Print the ranked live yield set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, getServices().aggregator.FetchAll(cmd.Context()))
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeToken, "token", "", "Token symbol, e.g. USDC")
	analyzeCmd.Flags().Float64Var(&analyzeAmount, "amount", 0, "Amount to deposit")
	analyzeCmd.Flags().Float64Var(&analyzeMinAPY, "min-apy", handler.DefaultMinAPY, "Minimum APY in percent")
}

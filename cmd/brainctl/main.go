// Command brainctl talks to a running BNB Brain backend and to the public
// market API from a terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bnbbrain-backend/pkg/logger"
)

var (
	endpoint string
	restURL  string
	timeout  time.Duration
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "brainctl",
	Short: "BNB Brain terminal client",
	Long: `brainctl asks the BNB Brain relay for trading insights and prints
live market data.

Commands:
  ask     - Submit a prompt through /api/chat
  ticker  - Print the formatted 24h snapshot for a pair
  predict - Print short-term direction signals from recent candles`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		// Both values are fixed literals, so Init cannot reject them.
		_ = logger.Init(level, "text")
		logger.SetOutput(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", envOr("BRAIN_ENDPOINT", "http://localhost:8080/api/chat"), "Chat relay endpoint")
	rootCmd.PersistentFlags().StringVar(&restURL, "rest-url", envOr("BINANCE_REST_URL", "https://api.binance.com"), "Exchange REST base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 90*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(tickerCmd)
	rootCmd.AddCommand(predictCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

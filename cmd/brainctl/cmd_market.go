package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"bnbbrain-backend/internal/market"
	"bnbbrain-backend/internal/models"
)

var (
	marketSymbol    string
	predictInterval string
	predictLimit    int
)

var (
	labelStyle = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color("8"))
	upStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	downStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// tickerCmd prints the dashboard snapshot for one pair
var tickerCmd = &cobra.Command{
	Use:   "ticker",
	Short: "Print the 24h market snapshot for a pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := market.NewClient(restURL, market.WithHTTPClient(&http.Client{Timeout: timeout}))
		return printTicker(cmd.Context(), cmd.OutOrStdout(), client, marketSymbol)
	},
}

// predictCmd prints direction signals computed from recent candles
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Print short-term direction signals for a pair",
	Long: `Fetch recent candles and print three signals:
  trend  - last close against the mean of the last 5 closes
  sma    - last close against its 20-period simple moving average
  next   - next-candle guess from the last two closes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := market.NewClient(restURL, market.WithHTTPClient(&http.Client{Timeout: timeout}))
		return printPrediction(cmd.Context(), cmd.OutOrStdout(), client, marketSymbol, predictInterval, predictLimit)
	},
}

func init() {
	for _, c := range []*cobra.Command{tickerCmd, predictCmd} {
		c.Flags().StringVarP(&marketSymbol, "symbol", "s", "BNBUSDT", "Trading pair")
	}
	predictCmd.Flags().StringVar(&predictInterval, "interval", "1h", "Candle interval")
	predictCmd.Flags().IntVar(&predictLimit, "limit", 50, "Number of candles to fetch")
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func printTicker(ctx context.Context, out io.Writer, client *market.Client, symbol string) error {
	t, err := client.Ticker24h(ctxOrBackground(ctx), symbol)
	if err != nil {
		return fmt.Errorf("fetch ticker: %w", err)
	}
	snap := market.NewSnapshot(t)

	rows := [][2]string{
		{"Pair", snap.Symbol},
		{"Price", snap.Price},
		{"24h change", snap.Change24h + "%"},
		{"24h volume", snap.Volume24h},
		{"24h high", snap.High24h},
		{"24h low", snap.Low24h},
		{"Market cap", snap.MarketCap},
		{"Volatility", snap.Volatility},
	}
	for _, row := range rows {
		fmt.Fprintln(out, labelStyle.Render(row[0])+row[1])
	}
	return nil
}

func styleDirection(dir string) string {
	if dir == models.DirectionUp {
		return upStyle.Render(strings.ToUpper(dir))
	}
	return downStyle.Render(strings.ToUpper(dir))
}

func printPrediction(ctx context.Context, out io.Writer, client *market.Client, symbol, interval string, limit int) error {
	klines, err := client.Klines(ctxOrBackground(ctx), symbol, interval, limit)
	if err != nil {
		return fmt.Errorf("fetch klines: %w", err)
	}
	closes := market.Closes(klines)

	trend, err := market.PredictDirection(closes)
	if err != nil {
		return fmt.Errorf("no candles returned for %s", strings.ToUpper(symbol))
	}
	fmt.Fprintln(out, labelStyle.Render("trend")+styleDirection(trend))

	if sma, dir, err := market.SMASignal(closes, market.SMALength); err == nil {
		fmt.Fprintln(out, labelStyle.Render("sma")+fmt.Sprintf("%s (SMA-%d %.4f)", styleDirection(dir), market.SMALength, sma))
	} else {
		fmt.Fprintln(out, labelStyle.Render("sma")+fmt.Sprintf("needs %d candles", market.SMALength))
	}

	if n := len(closes); n >= 2 {
		fmt.Fprintln(out, labelStyle.Render("next")+styleDirection(market.NextCandle(closes[n-2], closes[n-1])))
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"market_intel/internal/adapters/observability"
	"market_intel/internal/app"
	"market_intel/internal/domain"
	"market_intel/internal/shared"
)

var (
	rootCmd = &cobra.Command{
		Use:   "scout",
		Short: "Query restaurant providers and score markets from the command line",
		Long: `scout runs the same aggregation and market analysis as the API server,
configured from the same environment variables, and prints JSON to stdout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = shared.Load()
			log.Logger = observability.NewCLILogger(cfg.AppEnv, verbose)
			p, err := shared.LoadPolicy(cfg.PolicyFile)
			if err != nil {
				return err
			}
			policy = p
			return nil
		},
	}
	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search restaurants around a point across all providers",
		RunE:  runSearch,
	}
	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Compute a market analysis for one location",
		RunE:  runAnalyze,
	}
	batchCmd = &cobra.Command{
		Use:   "batch",
		Short: "Analyze every location listed in a YAML file",
		Long: `Reads named locations from a YAML file and analyzes them concurrently.
Example file:

  locations:
    - name: soho
      lat: 40.7233
      lon: -74.0030
      radius: 800`,
		RunE: runBatch,
	}

	cfg     shared.Config
	policy  domain.Policy
	verbose bool

	lat, lon  float64
	radius    int
	cuisine   string
	price     string
	minRating float64
	limit     int

	batchFile    string
	batchWorkers int
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	for _, c := range []*cobra.Command{searchCmd, analyzeCmd} {
		c.Flags().Float64Var(&lat, "lat", 0, "latitude of the center")
		c.Flags().Float64Var(&lon, "lon", 0, "longitude of the center")
		c.Flags().IntVar(&radius, "radius", domain.DefaultRadius, "search radius in meters")
		_ = c.MarkFlagRequired("lat")
		_ = c.MarkFlagRequired("lon")
	}
	searchCmd.Flags().StringVar(&cuisine, "cuisine", "", "cuisine keyword, e.g. thai")
	searchCmd.Flags().StringVar(&price, "price", "", "price bracket: $, $$, $$$ or $$$$")
	searchCmd.Flags().Float64Var(&minRating, "min-rating", 0, "drop restaurants rated below this")
	searchCmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "maximum number of restaurants")

	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "YAML file with locations")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 4, "concurrent analyses")
	_ = batchCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(searchCmd, analyzeCmd, batchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	if price != "" && !domain.PriceRange(price).Valid() {
		return fmt.Errorf("invalid --price %q", price)
	}
	res, err := cfg.Aggregator().Search(cmd.Context(), domain.SearchQuery{
		Center:    domain.Coords{Lat: lat, Lon: lon},
		Radius:    radius,
		Cuisine:   cuisine,
		Price:     domain.PriceRange(price),
		MinRating: minRating,
		Limit:     limit,
	})
	if err != nil {
		return err
	}
	if res.Fallback {
		log.Warn().Msg("every provider failed; printing placeholder data")
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	m := app.NewMarketAnalyzer(cfg.Aggregator(), cfg.Geocoder(), policy)
	a, err := m.Analyze(cmd.Context(), lat, lon, radius)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), a)
}

func runBatch(cmd *cobra.Command, args []string) error {
	locs, err := loadLocations(batchFile)
	if err != nil {
		return err
	}
	m := app.NewMarketAnalyzer(cfg.Aggregator(), cfg.Geocoder(), policy)
	results := analyzeAll(cmd.Context(), m, locs, batchWorkers)
	if err := printJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != "" {
			return fmt.Errorf("%d of %d locations failed", countFailed(results), len(results))
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fleet-asset-report/internal/api"
	"fleet-asset-report/internal/config"
	"fleet-asset-report/internal/db"
	"fleet-asset-report/internal/logger"
	"fleet-asset-report/internal/models"
	"fleet-asset-report/internal/report"
	"fleet-asset-report/internal/sample"
	"fleet-asset-report/internal/source"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "asset-report",
		Short: "Fleet asset utilization reports from trip logs and GPS telemetry",
		Long: `Builds per-vehicle utilization reports (distance travelled, average speed,
speed violations, trips completed and transporter) for a time window, from a
trip log CSV and a zip archive of telemetry CSVs or from a SQLite store.`,
		SilenceUsage: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to config file")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("data-dir", config.DefaultDataDir, "Directory holding the trip log and telemetry archive")
	flags.String("source", config.SourceFile, "Record source (file, sqlite)")
	flags.String("db-path", config.DefaultDBPath, "Path to SQLite database")

	// Add commands
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorWithCode(err).Msg("Command failed")
		os.Exit(1)
	}
}

// setup resolves configuration for cmd and initializes logging
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogLevel, logger.IsTerminal()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serverCmd starts the REST API server
func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			src, closeSource, err := source.Open(cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			server := api.NewServer(src, cfg.Format)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           server.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", srv.Addr).
					Str("source", cfg.Source).
					Str("format", cfg.Format).
					Msg("Asset report API listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntP("port", "p", config.DefaultPort, "Server port")
	return cmd
}

// reportCmd builds one report and writes it to a file or stdout
func reportCmd() *cobra.Command {
	var start, end, out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an asset report for a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			window, err := models.ParseWindow(start, end)
			if err != nil {
				return err
			}

			sink, err := report.NewSink(cfg.Format)
			if err != nil {
				return err
			}

			src, closeSource, err := source.Open(cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			begin := time.Now()
			rep, err := report.Generate(cmd.Context(), src, window)
			if err != nil {
				return err
			}

			if out == "" {
				out = report.Filename(sink, window)
			}

			var w io.Writer
			if out == "-" {
				bw := bufio.NewWriter(os.Stdout)
				defer bw.Flush()
				w = bw
			} else {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if err := sink.Write(w, rep); err != nil {
				return err
			}

			logger.Info().
				Str("window", window.String()).
				Int("rows", len(rep.Rows)).
				Str("output", out).
				Dur("elapsed", time.Since(begin)).
				Msg("Report written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&start, "start", "s", "", "Window start (epoch seconds)")
	cmd.Flags().StringVarP(&end, "end", "e", "", "Window end (epoch seconds)")
	cmd.Flags().StringP("format", "f", config.FormatXLSX, "Output format (xlsx, csv)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, - for stdout (default asset_report_<start>_<end>.<format>)")
	return cmd
}

// ingestCmd loads the trip log and telemetry archive into the SQLite store
func ingestCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the trip log and telemetry archive into SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			database, err := db.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			if replace {
				if err := database.Reset(ctx); err != nil {
					return err
				}
			}

			begin := time.Now()
			records, err := source.NewFileSource(cfg.TripPath(), cfg.TelemetryPath()).Load(ctx)
			if err != nil {
				return err
			}

			trips, err := database.InsertTripBatch(ctx, records.Trips)
			if err != nil {
				return err
			}
			fixes, err := database.InsertTelemetryBatch(ctx, records.Telemetry)
			if err != nil {
				return err
			}

			elapsed := time.Since(begin)
			logger.Info().
				Int64("trips", trips).
				Int64("fixes", fixes).
				Str("db", cfg.DBPath).
				Dur("elapsed", elapsed).
				Float64("records_per_sec", float64(trips+fixes)/elapsed.Seconds()).
				Msg("Ingest complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Clear previously ingested records first")
	return cmd
}

// statsCmd shows database statistics
func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			database, err := db.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			stats, err := database.GetStats(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Println("Asset Report Store")
			fmt.Println("==================")
			fmt.Printf("  Trips:            %d\n", stats.Trips)
			fmt.Printf("  Vehicles:         %d\n", stats.Vehicles)
			fmt.Printf("  Telemetry fixes:  %d\n", stats.Telemetry)
			fmt.Printf("  Assets:           %d\n", stats.Assets)
			if stats.Telemetry > 0 {
				fmt.Printf("  Fixes span:       %s .. %s\n", epoch(stats.FirstFix), epoch(stats.LastFix))
			}
			fmt.Printf("  Database:         %s\n", cfg.DBPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func epoch(ts int64) string {
	return strconv.FormatInt(ts, 10) + " (" + time.Unix(ts, 0).UTC().Format(time.RFC3339) + ")"
}

// generateCmd writes a synthetic trip log and telemetry archive
func generateCmd() *cobra.Command {
	var opts sample.Options
	var start int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample trip and telemetry files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			if start > 0 {
				opts.Start = time.Unix(start, 0)
			}

			res, err := sample.Write(cfg.DataDir, cfg.TripFile, cfg.TelemetryArchive, opts)
			if err != nil {
				return err
			}

			logger.Info().
				Str("trips_file", res.TripPath).
				Str("telemetry_file", res.TelemetryPath).
				Int("trips", res.Trips).
				Int("fixes", res.Fixes).
				Msg("Sample data written")
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Vehicles, "vehicles", 5, "Number of vehicles")
	cmd.Flags().IntVar(&opts.Fixes, "fixes", 500, "Telemetry fixes per vehicle")
	cmd.Flags().IntVar(&opts.Trips, "trips", 3, "Trips per vehicle")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 30*time.Second, "Time between fixes")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "Random seed")
	cmd.Flags().Int64Var(&start, "start", 0, "First fix time (epoch seconds, default 24h ago)")
	return cmd
}

// Command forecastctl runs one-shot ingest → forecast → export over a
// single input file, and exposes the scenario rewrites as standalone
// subcommands over a dataset file.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/demandforge/invforecast/internal/budget"
	"github.com/demandforge/invforecast/internal/config"
	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/export"
	"github.com/demandforge/invforecast/internal/features"
	"github.com/demandforge/invforecast/internal/forecast"
	"github.com/demandforge/invforecast/internal/forecast/naive"
	"github.com/demandforge/invforecast/internal/ingest"
	"github.com/demandforge/invforecast/internal/repository/postgres"
	"github.com/demandforge/invforecast/internal/scenario"
	"github.com/demandforge/invforecast/internal/session"
)

type contextKey string

const dbContextKey contextKey = "db"

func newInputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "input",
		Usage:    "Path to the source CSV or XLSX file",
		Required: true,
	}
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "When set, track this run in Postgres (connection settings come from the DB_* configuration)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	if c.String("db-url") == "" {
		return nil
	}
	cfg := config.Load()
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.Context = context.WithValue(c.Context, dbContextKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbContextKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "forecastctl",
		Usage: "Ingest a dataset, run a forecast, and export the results",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Ingest → forecast → export in one shot",
				Flags: []cli.Flag{
					newInputFlag(),
					newDBURLFlag(),
					&cli.IntFlag{Name: "horizon-days", Value: 30},
					&cli.StringFlag{Name: "granularity", Value: "daily"},
					&cli.StringFlag{Name: "output-dir", Value: "./data/output"},
				},
				Before: initDB,
				After:  closeDB,
				Action: runOnce,
			},
			{
				Name:  "spike",
				Usage: "Apply a demand spike to a dataset and write the rewritten CSV",
				Flags: []cli.Flag{
					newInputFlag(),
					&cli.StringFlag{Name: "sku", Required: true},
					&cli.StringFlag{Name: "start", Required: true},
					&cli.StringFlag{Name: "end", Required: true},
					&cli.Float64Flag{Name: "multiplier", Required: true},
					&cli.StringFlag{Name: "output", Value: "./data/output/spiked.csv"},
				},
				Action: runSpike,
			},
			{
				Name:  "delay",
				Usage: "Apply a supply delay to a dataset and write the rewritten CSV",
				Flags: []cli.Flag{
					newInputFlag(),
					&cli.StringFlag{Name: "sku", Required: true},
					&cli.StringFlag{Name: "start", Required: true},
					&cli.IntFlag{Name: "delay-days", Required: true},
					&cli.StringFlag{Name: "output", Value: "./data/output/delayed.csv"},
				},
				Action: runDelay,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadAndClean(inputPath string, cfg config.ForecastConfig) (domain.CleanFrame, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return domain.CleanFrame{}, fmt.Errorf("open %s: %w", inputPath, err)
	}
	defer f.Close()

	raw, choices, err := ingest.Load(f, inputPath)
	if err != nil {
		return domain.CleanFrame{}, fmt.Errorf("load %s: %w", inputPath, err)
	}
	if choices != nil {
		names := make([]string, len(choices))
		for i, c := range choices {
			names[i] = c.Name
		}
		return domain.CleanFrame{}, fmt.Errorf("%s has multiple sheets, choose one of: %v", inputPath, names)
	}

	mapping := ingest.DetectColumns(raw.Header)
	result, err := ingest.ValidateOrError(raw, mapping)
	if err != nil {
		return domain.CleanFrame{}, fmt.Errorf("validate %s: %w", inputPath, err)
	}

	frame, dropped, err := ingest.Clean(raw, mapping, ingest.CleanOptions{
		DateFormat:    result.DateFormat,
		Duplicates:    ingest.DuplicateSum,
		MinDataPoints: cfg.MinDataPoints,
	})
	if err != nil {
		return domain.CleanFrame{}, fmt.Errorf("clean %s: %w", inputPath, err)
	}
	for sku, n := range dropped {
		log.Printf("dropped sku %s: only %d rows, below minimum", sku, n)
	}
	return frame, nil
}

func runOnce(c *cli.Context) error {
	cfg := config.Load()

	frame, err := loadAndClean(c.String("input"), cfg.Forecast)
	if err != nil {
		return err
	}

	frame = budget.ApplyRowBudget(frame, budget.Limits{
		MaxRows:    cfg.Forecast.MaxRows,
		SampleRows: cfg.Forecast.SampleRows,
		KeepRecent: cfg.Forecast.KeepRecent,
		Seed:       cfg.Forecast.RandomSeed,
	})
	frame = budget.ApplySKUBudget(frame, budget.Limits{MaxSKUs: cfg.Forecast.MaxSKUs})

	mgr := features.Fit(frame, frame.AuxColumns, features.Thresholds{
		MinCoverage: cfg.Forecast.MinFeatureCoverage,
		MinVariance: cfg.Forecast.MinFeatureVariance,
	})

	coordinator := session.NewCoordinator(session.New(frame))
	coordinator.FitEncoders(mgr)

	granularity := parseGranularityFlag(c.String("granularity"))
	bundle, err := coordinator.RunForecast(context.Background(), forecast.Request{
		Frame:       frame,
		HorizonDays: c.Int("horizon-days"),
		Granularity: granularity,
		Strategy:    naive.Strategy{},
	})
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}

	if db, ok := c.Context.Value(dbContextKey).(*postgres.DB); ok && db != nil {
		if err := recordRun(c.Context, db, c.String("input"), bundle); err != nil {
			log.Printf("warning: failed to record run: %v", err)
		}
	}

	outDir := c.String("output-dir")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeExports(outDir, bundle); err != nil {
		return err
	}

	log.Printf("forecast complete: %d skus, %d skipped, written to %s", len(bundle.SKUs), len(bundle.Skipped), outDir)
	return nil
}

func writeExports(outDir string, bundle domain.ForecastBundle) error {
	writers := map[string]func(*os.File) error{
		"forecast_data.csv":  func(f *os.File) error { return export.WriteDataCSV(f, bundle) },
		"forecast_upper.csv": func(f *os.File) error { return export.WriteUpperCSV(f, bundle) },
		"forecast_lower.csv": func(f *os.File) error { return export.WriteLowerCSV(f, bundle) },
		"summary.txt":        func(f *os.File) error { return export.WriteSummary(f, bundle) },
	}
	for name, write := range writers {
		path := filepath.Join(outDir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		err = write(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func recordRun(ctx context.Context, db *postgres.DB, dataset string, bundle domain.ForecastBundle) error {
	repo := postgres.NewRepository(db)
	run := &postgres.ForecastRun{
		Dataset:     dataset,
		Granularity: bundle.Granularity.String(),
		HorizonDays: bundle.Horizon,
		Status:      postgres.RunCompleted,
		TotalSKUs:   len(bundle.SKUs),
		SkippedSKUs: len(bundle.Skipped),
		StartedAt:   bundle.RunAt,
	}
	if err := repo.CreateForecastRun(ctx, run); err != nil {
		return err
	}
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	return repo.UpdateForecastRun(ctx, run)
}

func runSpike(c *cli.Context) error {
	cfg := config.Load()
	frame, err := loadAndClean(c.String("input"), cfg.Forecast)
	if err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", c.String("start"))
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.String("end"))
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	rewritten := scenario.DemandSpike(frame, c.String("sku"), start, end, c.Float64("multiplier"))
	return writeDataset(c.String("output"), rewritten)
}

func runDelay(c *cli.Context) error {
	cfg := config.Load()
	frame, err := loadAndClean(c.String("input"), cfg.Forecast)
	if err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", c.String("start"))
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	rewritten := scenario.SupplyDelay(frame, c.String("sku"), start, c.Int("delay-days"))
	return writeDataset(c.String("output"), rewritten)
}

func writeDataset(outputPath string, frame domain.CleanFrame) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"date", "sku", "quantity"}, frame.AuxColumns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range frame.Records {
		row := []string{r.Date.Format("2006-01-02"), r.SKU, strconv.FormatFloat(r.Quantity, 'f', -1, 64)}
		for _, col := range frame.AuxColumns {
			aux := r.Auxiliary[col]
			if aux.Null {
				row = append(row, "")
			} else if aux.IsNum {
				row = append(row, strconv.FormatFloat(aux.Number, 'f', -1, 64))
			} else {
				row = append(row, aux.String)
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	log.Printf("wrote %d rows to %s", len(frame.Records), outputPath)
	return w.Error()
}

func parseGranularityFlag(s string) domain.Granularity {
	switch s {
	case "weekly":
		return domain.Weekly
	case "monthly":
		return domain.Monthly
	case "quarterly":
		return domain.Quarterly
	default:
		return domain.Daily
	}
}

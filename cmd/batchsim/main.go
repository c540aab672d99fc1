// batchsim runs the Plan -> Execute -> Post pipeline for a cohort of
// salmon production batches: either a --dry-run that only writes the
// planned schedule, or --execute which also runs the Event Engine and
// bulk-persists its output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aquamind/batchsim/pkg/config"
	"github.com/aquamind/batchsim/pkg/engine"
	"github.com/aquamind/batchsim/pkg/feedstock"
	"github.com/aquamind/batchsim/pkg/ledger"
	"github.com/aquamind/batchsim/pkg/metrics"
	"github.com/aquamind/batchsim/pkg/orchestrator"
	"github.com/aquamind/batchsim/pkg/projection"
	"github.com/aquamind/batchsim/pkg/store"
	"github.com/joho/godotenv"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	execute := flag.Bool("execute", false, "run the Engine and persist results (default is a --dry-run schedule)")
	dryRun := flag.Bool("dry-run", false, "only write the planned schedule (the default unless --execute is given)")
	batches := flag.Int("batches", 0, "override the saturation-derived batch count (0 = derive from --saturation)")
	saturation := flag.Float64("saturation", 0, "target Hall-A saturation fraction (0 = configured default)")
	geography := flag.String("geography", "", "restrict planning to a single geography (empty = every geography)")
	species := flag.String("species", "atlantic_salmon", "species to plan batches for")
	startDateFlag := flag.String("start-date", "", "cohort start date, YYYY-MM-DD (empty = today)")
	workers := flag.Int("workers", 0, "override the configured worker pool size (0 = configured default)")
	scheduleOut := flag.String("schedule-out", "", "write the planned schedule as YAML to this path (default: stdout)")
	scheduleIn := flag.String("schedule-in", "", "execute a previously written schedule instead of re-planning")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}
	if *workers > 0 {
		cfg.Orchestrator.WorkerCount = *workers
	}

	feed, err := feedstock.Open("")
	if err != nil {
		log.Fatalf("failed to open feedstock store: %v", err)
	}
	defer feed.Close()

	o := orchestrator.New(orchestrator.Deps{
		Config:            cfg,
		Ledger:            ledger.New(cfg.Directory.CapacityOf),
		Feed:              feed,
		ProjectionCounter: projection.NewCounter(),
		Metrics:           metrics.New(),
		Log:               slog.Default(),
	})

	var plans []engine.BatchPlan
	if *scheduleIn != "" {
		data, err := os.ReadFile(*scheduleIn)
		if err != nil {
			log.Fatalf("failed to read schedule %s: %v", *scheduleIn, err)
		}
		plans, err = orchestrator.UnmarshalSchedule(data)
		if err != nil {
			log.Fatalf("failed to parse schedule %s: %v", *scheduleIn, err)
		}
		log.Printf("loaded %d batches from %s", len(plans), *scheduleIn)
	} else {
		opts := orchestrator.PlanOptions{
			Species:    *species,
			Saturation: *saturation,
			BatchCount: *batches,
		}
		if *geography != "" {
			opts.Geographies = []string{*geography}
		}
		if *startDateFlag != "" {
			startDate, err := time.Parse("2006-01-02", *startDateFlag)
			if err != nil {
				log.Fatalf("invalid --start-date %q: %v", *startDateFlag, err)
			}
			opts.StartDate = startDate
		}
		plans, err = o.Plan(opts)
		if err != nil {
			log.Printf("plan phase failed: %v", err)
			os.Exit(2)
		}
		log.Printf("planned %d batches", len(plans))
	}

	if !*execute || *dryRun {
		if err := writeSchedule(plans, *scheduleOut); err != nil {
			log.Fatalf("failed to write schedule: %v", err)
		}
		return
	}

	dbCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	db, err := store.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	o.SetStore(db)

	report, err := o.RunPlans(ctx, plans)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	log.Printf("run complete: %d batches, %d failures, %d daily states persisted, wall time %s",
		len(report.Outcomes), report.FailureCount, report.DailyStates, report.WallTime)
	if report.FailureCount > 0 {
		os.Exit(1)
	}
}

func writeSchedule(plans []engine.BatchPlan, out string) error {
	data, err := orchestrator.MarshalSchedule(plans)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

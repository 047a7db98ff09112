// Command migrator moves the property catalog from the legacy document
// store into the normalized relational schema, inferring dimension tables
// (regions, areas, categories, types, compounds, contacts) from free-text
// fields along the way. It is intended to be run offline as a batch job,
// and is safe to rerun: primary rows upsert by external id.
//
// Flags:
//
//	--phase             comma-separated list of phases to run (default: all)
//	--dry-run           extract and count without writing to DB
//	--migration-config  path to migration YAML config file
//
// Exit codes: 0 = success, 1 = error or completed with record errors.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/propflow/migrator/internal/adapter/postgres"
	"github.com/propflow/migrator/internal/adapter/postgres/dimension"
	"github.com/propflow/migrator/internal/adapter/postgres/media"
	"github.com/propflow/migrator/internal/adapter/postgres/property"
	"github.com/propflow/migrator/internal/adapter/postgres/runlog"
	"github.com/propflow/migrator/internal/adapter/source/docstore"
	"github.com/propflow/migrator/internal/app"
	"github.com/propflow/migrator/internal/app/migration"
	"github.com/propflow/migrator/internal/config"
)

// Compile-time interface assertions.
var (
	_ migration.PageFetcher    = (*docstore.Client)(nil)
	_ migration.DimensionStore = (*dimension.Repo)(nil)
	_ migration.PropertyStore  = (*property.Repo)(nil)
	_ migration.MediaStore     = (*media.Repo)(nil)
	_ migration.RunStore       = (*runlog.Repo)(nil)
)

func main() {
	phaseFlag := flag.String("phase", "", "comma-separated phases to run (default: all)")
	dryRunFlag := flag.Bool("dry-run", false, "extract and count without writing to DB")
	migrationConfigFlag := flag.String("migration-config", "", "path to migration YAML config file")
	flag.Parse()

	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}

	logger := app.NewLogger(appCfg.Log)
	logger.Info("migrator starting",
		slog.String("version", app.Version),
		slog.String("source", appCfg.Source.BaseURL))

	migCfg, err := migration.LoadConfig(*migrationConfigFlag)
	if err != nil {
		logger.Error("load migration config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *dryRunFlag {
		migCfg.DryRun = true
	}

	var phases []string
	if *phaseFlag != "" {
		phases = strings.Split(*phaseFlag, ",")
		for i := range phases {
			phases[i] = strings.TrimSpace(phases[i])
		}
	}

	// SIGINT/SIGTERM cancel the run; in-flight batches finish and a
	// partial report is still produced.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := postgres.NewPool(ctx, appCfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	source := docstore.NewClient(appCfg.Source, logger)
	txm := postgres.NewTxManager(pool)

	dimRepo := dimension.New(pool)
	propRepo := property.New(pool)
	mediaRepo := media.New(pool, txm)
	runRepo := runlog.New(pool)

	resolver := migration.NewResolver(dimRepo, logger, migration.MatchRegion, migCfg.DefaultRegion)
	pipeline := migration.NewPipeline(
		migration.NewExtractor(source, appCfg.Source.PageSize),
		resolver,
		migration.NewMigrator(propRepo, resolver, logger, migCfg),
		migration.NewLinker(mediaRepo, logger, migCfg),
		dimRepo, propRepo, mediaRepo, runRepo,
		logger, migCfg,
		appCfg.Source.BaseURL,
	)

	report, err := pipeline.Run(ctx, phases)
	if err != nil {
		logger.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logReport(logger, report)
	if report.HasErrors() {
		logger.Warn("migration completed with errors")
		os.Exit(1)
	}
	logger.Info("migration completed successfully")
}

// logReport prints the per-phase summary and the sampled record errors.
func logReport(logger *slog.Logger, report *migration.Report) {
	for phase, result := range report.Phases {
		logger.Info("phase summary",
			slog.String("phase", phase),
			slog.Int("attempted", result.Attempted),
			slog.Int("succeeded", result.Succeeded),
			slog.Int("skipped", result.Skipped),
			slog.Int("errored", result.Errored),
			slog.Duration("duration", result.Duration))
		for _, recErr := range result.Errors {
			logger.Warn("record error",
				slog.String("phase", phase),
				slog.String("external_id", recErr.ExternalID),
				slog.String("message", recErr.Message))
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/dto"
	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/repository"
	"github.com/noah-isme/sma-records/internal/schema"
	"github.com/noah-isme/sma-records/internal/service"
	"github.com/noah-isme/sma-records/pkg/config"
	"github.com/noah-isme/sma-records/pkg/legacy"
	"github.com/noah-isme/sma-records/pkg/logger"
	"github.com/noah-isme/sma-records/pkg/storage"
)

const usage = `usage: records <command> [flags]

commands:
  status                     show store health and entity counts
  migrate                    back up, import and optionally purge the legacy store
  backup                     snapshot the legacy store to MIGRATION_BACKUP_DIR
  export [-format f]         export the store as json, xlsx, pdf or csv
  prune-exports              remove exports older than EXPORT_RETENTION
  clear-legacy               remove legacy keys outside the keep list
  copy-year -from y -to y    copy fees, services and subjects between years
  close-year -id y           mark a year closed
  add-student -first n -last n [-gender g]
                             create a student under the next numeric id
`

type app struct {
	db      *sqlx.DB
	store   legacy.Store
	records *service.RecordsService
	metrics *service.MetricsService
	logger  *zap.Logger
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, logr)
	if err != nil {
		logr.Error("records store unavailable", zap.Error(err))
		os.Exit(1)
	}
	defer a.close()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logr.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	db, err := schema.Open(ctx, cfg.Database, schema.Options{Logger: logr})
	if err != nil {
		return nil, err
	}

	store, err := legacy.Open(cfg.Legacy)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open legacy store: %w", err)
	}

	backups, err := storage.NewLocalStorage(cfg.Migration.BackupDir)
	if err != nil {
		_ = db.Close()
		_ = store.Close()
		return nil, err
	}
	exports, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		_ = db.Close()
		_ = store.Close()
		return nil, err
	}

	years := repository.NewAcademicYearRepository(db)
	students := repository.NewStudentRepository(db)
	teachers := repository.NewTeacherRepository(db)
	classes := repository.NewClassRepository(db)
	payments := repository.NewPaymentRepository(db)
	guardians := repository.NewGuardianRepository(db)
	grades := repository.NewGradeRepository(db)

	metrics := service.NewMetricsService()
	migration := service.NewMigrationService(service.MigrationRepositories{
		Years:    years,
		Students: students,
		Teachers: teachers,
		Classes:  classes,
		Payments: payments,
	}, store, metrics, nil, logr.Named("migration"))
	if len(cfg.Migration.KeepKeys) > 0 {
		migration = migration.WithKeepKeys(cfg.Migration.KeepKeys)
	}

	exporter := service.NewExportService(service.ExportSources{
		Years:     years,
		Students:  students,
		Teachers:  teachers,
		Guardians: guardians,
		Classes:   classes,
		Subjects:  grades,
		Payments:  payments,
	}, exports, models.ExportFormat(cfg.Export.Format), logr.Named("export"), nil, nil, nil)

	fallback := service.NewFallbackService(years, students, store, metrics, nil, logr.Named("fallback")).
		WithSequencer(repository.NewSequencer(db))

	records := service.NewRecordsService(service.RecordsDeps{
		Years:     years,
		Students:  students,
		Teachers:  teachers,
		Classes:   classes,
		Migration: migration,
		Fallback:  fallback,
		Exports:   exporter,
		Backups:   backups,
		Retention: exports,
		Metrics:   metrics,
	}, service.RecordsOptions{
		KeepLegacy:      !cfg.Migration.PurgeLegacy,
		MetricsPath:     cfg.Metrics.TextfilePath,
		ExportRetention: cfg.Export.Retention,
	}, logr)

	return &app{db: db, store: store, records: records, metrics: metrics, logger: logr}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close legacy store", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close records store", zap.Error(err))
	}
}

func (a *app) run(ctx context.Context, command string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	switch command {
	case "status":
		if err := fs.Parse(args); err != nil {
			return err
		}
		status, err := a.records.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, struct {
			*models.StoreStatus
			Metrics models.MetricsSnapshot `json:"metrics"`
		}{status, a.metrics.Snapshot()})

	case "migrate":
		if err := fs.Parse(args); err != nil {
			return err
		}
		report, err := a.records.MigrateWithProgress(ctx, func(stage models.MigrationStage, percent int) {
			fmt.Fprintf(out, "[%3d%%] %s\n", percent, stage)
		})
		if report != nil {
			for _, c := range report.Categories {
				fmt.Fprintf(out, "%-16s imported %d, failed %d\n", c.Category, c.Imported(), len(c.Failed()))
			}
			for _, w := range report.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
		}
		return err

	case "backup":
		if err := fs.Parse(args); err != nil {
			return err
		}
		path, err := a.records.Backup(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		return nil

	case "export":
		format := fs.String("format", "", "json, xlsx, pdf or csv (default EXPORT_FORMAT)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		result, err := a.records.Export(ctx, models.ExportFormat(*format))
		if err != nil {
			return err
		}
		for _, f := range result.Files {
			fmt.Fprintln(out, f)
		}
		return nil

	case "prune-exports":
		if err := fs.Parse(args); err != nil {
			return err
		}
		deleted, err := a.records.PruneExports()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d file(s)\n", len(deleted))
		return nil

	case "clear-legacy":
		if err := fs.Parse(args); err != nil {
			return err
		}
		removed, err := a.records.ClearLegacyStore(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed: %s\n", strings.Join(removed, ", "))
		return nil

	case "copy-year":
		from := fs.String("from", "", "source academic year id")
		to := fs.String("to", "", "target academic year id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.records.CopyYear(ctx, *from, *to)

	case "close-year":
		id := fs.String("id", "", "academic year id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.records.CloseYear(ctx, *id)

	case "add-student":
		var student dto.LegacyStudent
		fs.StringVar(&student.FirstName, "first", "", "first name")
		fs.StringVar(&student.LastName, "last", "", "last name")
		fs.StringVar(&student.Gender, "gender", "", "homme or femme")
		if err := fs.Parse(args); err != nil {
			return err
		}
		created, err := a.records.AddStudent(ctx, student)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, created.ID)
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

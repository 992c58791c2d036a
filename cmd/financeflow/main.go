package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financeflow/internal/backend"
	"financeflow/internal/backup"
	"financeflow/internal/config"
	"financeflow/internal/core"
	"financeflow/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	now := time.Now()
	year := flag.Int("year", now.Year(), "dashboard year")
	month := flag.Int("month", int(now.Month()), "dashboard month (1-12)")
	doBackup := flag.Bool("backup", false, "export a snapshot to the backup spreadsheet and exit")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Failed to build backend config", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend))
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}()

	if err := result.Tracker.Refresh(ctx); err != nil {
		logger.Error("Refresh failed", log.FieldError, err, log.FieldOperation, log.OpRefresh)
		os.Exit(1)
	}

	if *doBackup {
		if err := runBackup(ctx, result, logger); err != nil {
			logger.Error("Backup failed", log.FieldError, err, log.FieldOperation, log.OpBackup)
			os.Exit(1)
		}
		return
	}

	renderDashboard(result, *year, time.Month(*month))
}

// runBackup exports the current snapshot, gated on the take-backup
// capability.
func runBackup(ctx context.Context, result *backend.Result, logger *log.Logger) error {
	perms, err := result.Client.Permissions(ctx)
	if err != nil {
		return err
	}
	if !perms.Allows(core.CapTakeBackup) {
		return fmt.Errorf("take-backup capability not granted")
	}

	exporter, err := backup.NewFromEnv(ctx, logger.WithComponent(log.ComponentBackup))
	if err != nil {
		return err
	}

	snap := result.Tracker.Snapshot()
	return exporter.Export(ctx, snap.Projects, snap.Transactions)
}

// renderDashboard prints a plain-text calendar for the month plus project
// balances and the portfolio total.
func renderDashboard(result *backend.Result, year int, month time.Month) {
	now := time.Now()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	grid := result.Tracker.MonthGrid(year, month, today)
	snap := result.Tracker.Snapshot()

	fmt.Printf("%s %d\n", month, year)
	fmt.Println("    Sun     Mon     Tue     Wed     Thu     Fri     Sat")
	for i, cell := range grid {
		marker := " "
		if cell.Today {
			marker = "*"
		}
		if !cell.InMonth {
			fmt.Printf("   .    ")
		} else if cell.Aggregate.Income == 0 && cell.Aggregate.Expense == 0 {
			fmt.Printf(" %2d%s     ", cell.Date.Day(), marker)
		} else {
			fmt.Printf(" %2d%s%+.0f ", cell.Date.Day(), marker, cell.Aggregate.Income-cell.Aggregate.Expense)
		}
		if (i+1)%7 == 0 {
			fmt.Println()
		}
	}

	fmt.Println()
	for _, p := range snap.Projects {
		fmt.Printf("%-24s %12s\n", p.Name, core.FormatAmount(snap.Summary.ProjectBalance(p.ID)))
	}
	if unassigned := snap.Summary.ProjectBalance(""); unassigned != 0 {
		fmt.Printf("%-24s %12s\n", "(unassigned)", core.FormatAmount(unassigned))
	}
	fmt.Printf("%-24s %12s\n", "Portfolio", core.FormatAmount(snap.Summary.Portfolio))
	if snap.Summary.Investment != 0 {
		fmt.Printf("%-24s %12s\n", "Invested", core.FormatAmount(snap.Summary.Investment))
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"grailed/internal/config"
	applog "grailed/internal/log"
	"grailed/internal/metrics"
	"grailed/internal/repos"
)

// app carries what every subcommand shares once flags have been applied.
type app struct {
	cfg     config.Config
	log     *applog.Logger
	metrics *metrics.Metrics
	db      *sqlx.DB
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: config.Load(), log: applog.New(), metrics: metrics.New()}
	root := newRootCommand(a)
	err := root.ExecuteContext(ctx)
	if a.db != nil {
		_ = a.db.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "grailed",
		Short:        "Crawl and ingest marketplace listings and users",
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			a.setupLogFile()
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.DBDriver, "db-driver", a.cfg.DBDriver, "database driver (sqlite or postgres)")
	flags.StringVar(&a.cfg.DBDSN, "db-dsn", a.cfg.DBDSN, "database DSN")
	flags.StringVar(&a.cfg.LogFile, "log-file", a.cfg.LogFile, "also append logs to this file")

	root.AddCommand(newIngestCommand(a), newCrawlCommand(a), newCursorCommand(a))
	return root
}

func (a *app) setupLogFile() {
	if a.cfg.LogFile == "" {
		return
	}
	f, err := os.OpenFile(a.cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", a.cfg.LogFile, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
}

// store opens the database on first use.
func (a *app) store() (*sqlx.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := repos.OpenDB(a.cfg.DBDriver, a.cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", a.cfg.DBDriver, err)
	}
	a.db = db
	return db, nil
}

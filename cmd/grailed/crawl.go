package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"grailed/internal/crawl"
	"grailed/internal/http/handlers"
	"grailed/internal/repos"
	"grailed/internal/services"
	"grailed/internal/validate"
)

func newCrawlCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch entities by sequential id from the marketplace API",
		Long: `
Walks ids from the persisted cursor up to MAX_ID, one request per FETCH_DELAY,
saving each response under JSON_DIR and optionally ingesting it. Interrupting
the crawl leaves the cursor at the first unprocessed id.
`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return a.runCrawl(c.Context())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&a.cfg.Entity, "entity", a.cfg.Entity, "entity to crawl (listings or users)")
	flags.Int64Var(&a.cfg.MaxID, "max-id", a.cfg.MaxID, "stop before this id")
	flags.Int64Var(&a.cfg.StartID, "start-id", a.cfg.StartID, "first id when no cursor exists yet")
	flags.DurationVar(&a.cfg.FetchDelay, "delay", a.cfg.FetchDelay, "minimum spacing between requests")
	flags.StringVar(&a.cfg.CursorBackend, "cursor-backend", a.cfg.CursorBackend, "where the cursor lives (file or db)")
	flags.StringVar(&a.cfg.CursorFile, "cursor-file", a.cfg.CursorFile, "cursor file for the file backend")
	flags.StringVar(&a.cfg.JSONDir, "json-dir", a.cfg.JSONDir, "directory for raw responses; empty disables saving")
	flags.BoolVar(&a.cfg.CrawlIngest, "ingest", a.cfg.CrawlIngest, "ingest each response as it arrives")
	flags.StringVar(&a.cfg.StatusAddr, "status-addr", a.cfg.StatusAddr, "serve /healthz, /status and /metrics on this address")
	return cmd
}

func (a *app) runCrawl(ctx context.Context) error {
	entity, ok := validate.Entity(a.cfg.Entity)
	if !ok {
		return fmt.Errorf("unknown entity %q (want listings or users)", a.cfg.Entity)
	}
	cursor, err := a.cursor(entity)
	if err != nil {
		return err
	}
	fetcher, err := crawl.NewHTTPFetcher(crawl.HTTPFetcherOptions{
		BaseURL:   a.cfg.APIBase,
		Host:      a.cfg.APIHost,
		UserAgent: a.cfg.UserAgent,
		Cookie:    a.cfg.Cookie,
		Timeout:   a.cfg.FetchTimeout,
		Retries:   a.cfg.FetchRetries,
	})
	if err != nil {
		return err
	}

	var sinks crawl.Sinks
	if a.cfg.JSONDir != "" {
		sinks = append(sinks, &crawl.FileSink{Dir: a.cfg.JSONDir})
	}
	if a.cfg.CrawlIngest {
		db, err := a.store()
		if err != nil {
			return err
		}
		sinks = append(sinks, &crawl.IngestSink{Ingest: services.NewIngestService(db, a.log, a.metrics)})
	}
	if len(sinks) == 0 {
		return errors.New("nothing to do with fetched documents: set JSON_DIR or enable ingestion")
	}

	c := &crawl.Crawler{
		Entity:  entity,
		MaxID:   a.cfg.MaxID,
		Cursor:  cursor,
		Fetcher: fetcher,
		Sink:    sinks,
		Limiter: crawl.NewLimiter(a.cfg.FetchDelay),
		Log:     a.log,
		Metrics: a.metrics,
	}

	if a.cfg.StatusAddr != "" {
		srv := handlers.NewStatusApp(c, a.metrics, a.log)
		go func() {
			if err := srv.Listen(a.cfg.StatusAddr); err != nil {
				a.log.Error("status.listen", err, map[string]any{"addr": a.cfg.StatusAddr})
			}
		}()
		defer func() { _ = srv.ShutdownWithTimeout(5 * time.Second) }()
	}

	if err := c.Run(ctx); err != nil {
		if ctx.Err() != nil {
			p := c.Snapshot()
			a.log.Info("crawl.interrupted", map[string]any{"entity": entity, "next_id": p.NextID})
			return nil
		}
		a.log.Error("crawl.run", err, map[string]any{"entity": entity})
		return err
	}
	return nil
}

// cursor picks the cursor store for entity. The db backend keeps one row per
// entity so listing and user crawls can share a database.
func (a *app) cursor(entity string) (crawl.Cursor, error) {
	switch a.cfg.CursorBackend {
	case "", "file":
		return &crawl.FileCursor{Path: a.cfg.CursorFile, Start: a.cfg.StartID}, nil
	case "db":
		db, err := a.store()
		if err != nil {
			return nil, err
		}
		return repos.NewCursorRepo(db, entity, a.cfg.StartID), nil
	}
	return nil, fmt.Errorf("unknown cursor backend %q (want file or db)", a.cfg.CursorBackend)
}

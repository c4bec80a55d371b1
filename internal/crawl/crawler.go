package crawl

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	applog "grailed/internal/log"
	"grailed/internal/metrics"
)

// Progress is a point-in-time view of a running crawl.
type Progress struct {
	Entity  string `json:"entity"`
	NextID  int64  `json:"next_id"`
	MaxID   int64  `json:"max_id"`
	Fetched int64  `json:"fetched"`
	Failed  int64  `json:"failed"`
	Done    bool   `json:"done"`
}

// Crawler walks the id space [cursor, MaxID) one id at a time. Every id
// advances the cursor by one whether its fetch succeeded or not, and the
// cursor is stored after each step, so a restart resumes at the first
// unprocessed id.
type Crawler struct {
	Entity  string
	MaxID   int64
	Cursor  Cursor
	Fetcher Fetcher
	Sink    Sink
	Limiter *rate.Limiter
	Log     *applog.Logger
	Metrics *metrics.Metrics

	next    atomic.Int64
	fetched atomic.Int64
	failed  atomic.Int64
	done    atomic.Bool
}

// NewLimiter spaces requests at least delay apart. Zero disables throttling.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Run crawls until the bound is reached or ctx is cancelled.
func (c *Crawler) Run(ctx context.Context) error {
	if c.Limiter == nil {
		c.Limiter = NewLimiter(0)
	}
	next, err := c.Cursor.Load(ctx)
	if err != nil {
		return err
	}
	c.setNext(next)
	c.Log.Info("crawl.start", map[string]any{"entity": c.Entity, "next_id": next, "max_id": c.MaxID})

	for next < c.MaxID {
		if err := c.Limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		c.step(ctx, next)
		// interrupted mid-step: leave the cursor so the id is redone on restart
		if err := ctx.Err(); err != nil {
			return err
		}

		next++
		if err := c.Cursor.Store(ctx, next); err != nil {
			return err
		}
		c.setNext(next)
	}

	c.done.Store(true)
	c.Log.Info("crawl.complete", map[string]any{"entity": c.Entity, "next_id": next})
	return nil
}

func (c *Crawler) step(ctx context.Context, id int64) {
	fields := map[string]any{"entity": c.Entity, "id": id}
	body, err := c.Fetcher.Fetch(ctx, c.Entity, id)
	if err != nil {
		c.failed.Add(1)
		c.Metrics.Fetch(c.Entity, "error")
		c.Log.Warn("crawl.fetch", err, fields)
		return
	}
	c.fetched.Add(1)
	c.Metrics.Fetch(c.Entity, "ok")

	if err := c.Sink.Accept(ctx, c.Entity, id, body); err != nil {
		c.Log.Error("crawl.sink", err, fields)
		return
	}
	c.Log.Info("crawl.fetch", fields)
}

func (c *Crawler) setNext(next int64) {
	c.next.Store(next)
	c.Metrics.SetCursor(next)
}

func (c *Crawler) Snapshot() Progress {
	return Progress{
		Entity:  c.Entity,
		NextID:  c.next.Load(),
		MaxID:   c.MaxID,
		Fetched: c.fetched.Load(),
		Failed:  c.failed.Load(),
		Done:    c.done.Load(),
	}
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grailed/internal/crawl"
	applog "grailed/internal/log"
	"grailed/internal/metrics"
)

// ProgressSource is anything that can report crawl progress, normally a
// *crawl.Crawler.
type ProgressSource interface {
	Snapshot() crawl.Progress
}

type StatusHandler struct {
	Progress ProgressSource
	Log      *applog.Logger
}

func (h *StatusHandler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

func (h *StatusHandler) Status(c *fiber.Ctx) error {
	if h.Progress == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no crawl running"})
	}
	p := h.Progress.Snapshot()
	h.Log.Request(c, "status.read", map[string]any{"next_id": p.NextID})
	return c.JSON(p)
}

// NewStatusApp builds the read-only surface served next to a running crawl.
func NewStatusApp(src ProgressSource, m *metrics.Metrics, log *applog.Logger) *fiber.App {
	h := &StatusHandler{Progress: src, Log: log}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error("server.error", err, map[string]any{"path": c.Path()})
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": "request failed"})
		},
	})
	app.Use(requestid.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			log.Request(c, "rate.status.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	app.Get("/healthz", h.Healthz)
	app.Get("/status", h.Status)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	return app
}

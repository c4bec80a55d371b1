package log

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type entry struct {
	TS     string         `json:"ts"`
	Level  string         `json:"level"`
	RunID  string         `json:"run_id,omitempty"`
	ReqID  string         `json:"req_id,omitempty"`
	Method string         `json:"method,omitempty"`
	Path   string         `json:"path,omitempty"`
	Action string         `json:"action,omitempty"`
	Status int            `json:"status,omitempty"`
	Err    string         `json:"err,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Logger writes one JSON object per line through the standard logger, tagged
// with the id of the run that produced it.
type Logger struct {
	RunID string
}

// New returns a Logger with a fresh run id.
func New() *Logger { return &Logger{RunID: uuid.NewString()} }

func (l *Logger) write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Action: action, Fields: fields}
	if l != nil {
		e.RunID = l.RunID
	}
	if c != nil {
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func (l *Logger) Info(action string, fields map[string]any) { l.write("info", nil, action, nil, fields) }
func (l *Logger) Warn(action string, err error, fields map[string]any) {
	l.write("warn", nil, action, err, fields)
}
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.write("error", nil, action, err, fields)
}

// Request logs an HTTP request served by the status surface.
func (l *Logger) Request(c *fiber.Ctx, action string, fields map[string]any) {
	l.write("info", c, action, nil, fields)
}

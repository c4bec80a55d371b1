package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"grailed/internal/services"
)

// Sink receives every fetched document.
type Sink interface {
	Accept(ctx context.Context, entity string, id int64, body []byte) error
}

// FileSink writes each document to {Dir}/{id}.json as compact JSON.
type FileSink struct {
	Dir string
}

func (s *FileSink) Accept(ctx context.Context, entity string, id int64, body []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return fmt.Errorf("compact %d: %w", id, err)
	}
	return os.WriteFile(filepath.Join(s.Dir, fmt.Sprintf("%d.json", id)), buf.Bytes(), 0o644)
}

// IngestSink normalizes and upserts each document as it arrives.
type IngestSink struct {
	Ingest *services.IngestService
}

func (s *IngestSink) Accept(ctx context.Context, entity string, id int64, body []byte) error {
	_, err := s.Ingest.IngestDocument(ctx, entity, body)
	return err
}

// Sinks fans one document out to several sinks, running all of them even if
// one fails.
type Sinks []Sink

func (ss Sinks) Accept(ctx context.Context, entity string, id int64, body []byte) error {
	var errs []error
	for _, s := range ss {
		if err := s.Accept(ctx, entity, id, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

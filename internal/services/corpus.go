package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxDocument bounds one corpus line unless IngestService.MaxDocument is set;
// listing descriptions can be long.
const maxDocument = 16 << 20

var ErrDocumentTooLarge = errors.New("document exceeds size limit")

type Stats struct {
	Documents int
	Ingested  int
	NoData    int
	Failed    int
}

// IngestCorpus reads one JSON document per line from r and ingests each in
// its own transaction. Blank lines are skipped. Under PolicyContinue a failed
// document is logged and the batch moves on; under PolicyAbort the first
// failure stops the batch and is returned.
func (s *IngestService) IngestCorpus(ctx context.Context, entity string, r io.Reader, policy Policy) (Stats, error) {
	var stats Stats
	limit := s.MaxDocument
	if limit <= 0 {
		limit = maxDocument
	}
	br := bufio.NewReaderSize(r, 64*1024)

	line := 0
	for {
		raw, tooLarge, err := readLine(br, limit)
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read corpus: %w", err)
		}
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		doc := bytes.TrimSpace(raw)
		if len(doc) == 0 && !tooLarge {
			continue
		}
		stats.Documents++

		outcome, err := OutcomeFailed, ErrDocumentTooLarge
		if !tooLarge {
			outcome, err = s.IngestDocument(ctx, entity, doc)
		}
		switch outcome {
		case OutcomeIngested:
			stats.Ingested++
		case OutcomeNoData:
			stats.NoData++
		default:
			stats.Failed++
		}
		fields := map[string]any{"entity": entity, "line": line, "outcome": string(outcome)}
		if err != nil {
			s.Log.Error("ingest.document", err, fields)
			if policy == PolicyAbort {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			continue
		}
		s.Log.Info("ingest.document", fields)
	}
	return stats, nil
}

// readLine returns the next line of br. A line longer than limit is consumed
// in full and reported with tooLarge set and no content. io.EOF is returned
// only when nothing was left to read.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLarge bool, err error) {
	read := false
	for {
		chunk, err := br.ReadSlice('\n')
		read = read || len(chunk) > 0
		if !tooLarge {
			if len(line)+len(chunk) > limit+1 {
				tooLarge, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			return line, tooLarge, nil
		default:
			return line, tooLarge, err
		}
	}
}

// IngestFile ingests the corpus stored at path.
func (s *IngestService) IngestFile(ctx context.Context, entity, path string, policy Policy) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	stats, err := s.IngestCorpus(ctx, entity, f, policy)
	s.Log.Info("ingest.corpus.done", map[string]any{
		"entity": entity, "path": path, "documents": stats.Documents,
		"ingested": stats.Ingested, "no_data": stats.NoData, "failed": stats.Failed,
	})
	return stats, err
}

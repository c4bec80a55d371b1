package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grailed/internal/config"
	applog "grailed/internal/log"
	"grailed/internal/metrics"
)

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testApp(t *testing.T) *app {
	dir := t.TempDir()
	a := &app{
		cfg: config.Config{
			DBDriver:      "sqlite",
			DBDSN:         ":memory:",
			Entity:        "listings",
			CursorBackend: "file",
			CursorFile:    filepath.Join(dir, "next_index"),
			StartID:       1,
			ErrorPolicy:   "continue",
		},
		log:     &applog.Logger{RunID: "cli-test"},
		metrics: metrics.New(),
	}
	t.Cleanup(func() {
		if a.db != nil {
			a.db.Close()
		}
	})
	return a
}

func TestCursorShowAndSet(t *testing.T) {
	a := testApp(t)
	out, err := run(t, a, "cursor", "show")
	if err != nil || strings.TrimSpace(out) != "1" {
		t.Fatalf("show before any crawl: %q %v", out, err)
	}
	if _, err := run(t, a, "cursor", "set", "250"); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, a, "cursor", "show")
	if err != nil || strings.TrimSpace(out) != "250" {
		t.Fatalf("show after set: %q %v", out, err)
	}
	if _, err := run(t, a, "cursor", "set", "ten"); err == nil {
		t.Fatal("non-numeric id accepted")
	}
}

func TestCursorDBBackendKeepsEntitiesApart(t *testing.T) {
	a := testApp(t)
	if _, err := run(t, a, "cursor", "set", "90", "--cursor-backend", "db", "--entity", "users"); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, a, "cursor", "show", "--cursor-backend", "db", "--entity", "listings")
	if err != nil || strings.TrimSpace(out) != "1" {
		t.Fatalf("listings cursor: %q %v", out, err)
	}
	out, err = run(t, a, "cursor", "show", "--cursor-backend", "db", "--entity", "user")
	if err != nil || strings.TrimSpace(out) != "90" {
		t.Fatalf("users cursor: %q %v", out, err)
	}
}

func TestIngestCommand(t *testing.T) {
	a := testApp(t)
	corpus := filepath.Join(t.TempDir(), "listings.jsonl")
	doc := `{"data":{"id":5,"designer":{"id":1,"name":"Acne"},"seller":{"id":9},"photos":[{"id":50}]}}` + "\n" +
		`{"error":"not found"}` + "\n"
	if err := os.WriteFile(corpus, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, a, "ingest", "listings", corpus)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 documents, 1 ingested, 1 no data, 0 failed") {
		t.Fatalf("summary = %q", out)
	}
	if _, err := run(t, a, "ingest", "photos", corpus); err == nil {
		t.Fatal("unknown entity accepted")
	}
	if _, err := run(t, a, "ingest", "listings", corpus, "--policy", "retry"); err == nil {
		t.Fatal("unknown policy accepted")
	}
}

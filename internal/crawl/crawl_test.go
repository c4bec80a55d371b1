package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"grailed/internal/crawl"
	applog "grailed/internal/log"
	"grailed/internal/metrics"
	"grailed/internal/repos"
	"grailed/internal/services"
)

type fakeFetcher struct {
	fail  map[int64]bool
	calls []int64
	onGet func(id int64)
}

func (f *fakeFetcher) Fetch(ctx context.Context, entity string, id int64) ([]byte, error) {
	f.calls = append(f.calls, id)
	if f.onGet != nil {
		f.onGet(id)
	}
	if f.fail[id] {
		return nil, &crawl.FetchError{URL: fmt.Sprintf("/%s/%d", entity, id), Err: errors.New("connection reset")}
	}
	return []byte(fmt.Sprintf(`{"data":{"id":%d}}`, id)), nil
}

type recordSink struct{ ids []int64 }

func (s *recordSink) Accept(ctx context.Context, entity string, id int64, body []byte) error {
	s.ids = append(s.ids, id)
	return nil
}

func readCursor(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestFileCursor(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "next_index")
	c := &crawl.FileCursor{Path: path, Start: 3}

	next, err := c.Load(ctx)
	if err != nil || next != 3 {
		t.Fatalf("missing file: next=%d err=%v", next, err)
	}
	if err := c.Store(ctx, 41); err != nil {
		t.Fatal(err)
	}
	if got := readCursor(t, path); got != "41" {
		t.Fatalf("file holds %q", got)
	}
	if err := os.WriteFile(path, []byte(" 77\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if next, err := c.Load(ctx); err != nil || next != 77 {
		t.Fatalf("trimmed load: next=%d err=%v", next, err)
	}
	if err := os.WriteFile(path, []byte("seventy"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load(ctx); err == nil {
		t.Fatal("garbage cursor accepted")
	}
}

func TestCrawler_AdvancesPastFailuresAndResumes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "next_index")
	if err := os.WriteFile(path, []byte("5"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &fakeFetcher{fail: map[int64]bool{6: true, 8: true}}
	sink := &recordSink{}
	m := metrics.New()
	c := &crawl.Crawler{
		Entity:  "listings",
		MaxID:   9,
		Cursor:  &crawl.FileCursor{Path: path},
		Fetcher: f,
		Sink:    sink,
		Metrics: m,
	}
	if err := c.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := readCursor(t, path); got != "9" {
		t.Fatalf("cursor = %s, want 9", got)
	}
	p := c.Snapshot()
	if p.NextID != 9 || p.Fetched != 2 || p.Failed != 2 || !p.Done {
		t.Fatalf("progress = %+v", p)
	}
	if len(sink.ids) != 2 || sink.ids[0] != 5 || sink.ids[1] != 7 {
		t.Fatalf("sink saw %v", sink.ids)
	}

	// restart with a wider bound picks up exactly where the last run stopped
	f2 := &fakeFetcher{}
	c2 := &crawl.Crawler{Entity: "listings", MaxID: 12, Cursor: &crawl.FileCursor{Path: path}, Fetcher: f2, Sink: &recordSink{}}
	if err := c2.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f2.calls) != 3 || f2.calls[0] != 9 || f2.calls[2] != 11 {
		t.Fatalf("resumed calls = %v", f2.calls)
	}
	if got := readCursor(t, path); got != "12" {
		t.Fatalf("cursor = %s, want 12", got)
	}
}

func TestCrawler_AtBoundDoesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "next_index")
	f := &fakeFetcher{}
	c := &crawl.Crawler{Entity: "listings", MaxID: 10, Cursor: &crawl.FileCursor{Path: path, Start: 10}, Fetcher: f, Sink: &recordSink{}}
	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("fetched past the bound: %v", f.calls)
	}
}

func TestCrawler_InterruptKeepsCurrentID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "next_index")

	f := &fakeFetcher{onGet: func(id int64) {
		if id == 3 {
			cancel()
		}
	}}
	c := &crawl.Crawler{Entity: "listings", MaxID: 100, Cursor: &crawl.FileCursor{Path: path, Start: 1}, Fetcher: f, Sink: &recordSink{}}
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if got := readCursor(t, path); got != "3" {
		t.Fatalf("cursor = %s, want 3", got)
	}
}

func TestCrawler_DBCursor(t *testing.T) {
	ctx := context.Background()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	c := &crawl.Crawler{Entity: "users", MaxID: 4, Cursor: repos.NewCursorRepo(db, "users", 1), Fetcher: &fakeFetcher{}, Sink: &recordSink{}}
	if err := c.Run(ctx); err != nil {
		t.Fatal(err)
	}
	next, err := repos.NewCursorRepo(db, "users", 1).Load(ctx)
	if err != nil || next != 4 {
		t.Fatalf("db cursor next=%d err=%v", next, err)
	}
}

func TestLimiterSpacesRequests(t *testing.T) {
	l := crawl.NewLimiter(40 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if el := time.Since(start); el < 70*time.Millisecond {
		t.Fatalf("three requests took %v, want >= 80ms spacing", el)
	}
}

func TestHTTPFetcher(t *testing.T) {
	var gotPath, gotUA, gotCookie, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA, gotCookie, gotHost = r.URL.Path, r.Header.Get("User-Agent"), r.Header.Get("Cookie"), r.Host
		switch r.URL.Path {
		case "/api/listings/7":
			_, _ = w.Write([]byte(`{"data":{"id":7}}`))
		case "/api/listings/8":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`<html>challenge</html>`))
		}
	}))
	defer srv.Close()

	f, err := crawl.NewHTTPFetcher(crawl.HTTPFetcherOptions{
		BaseURL:   srv.URL + "/api/",
		Host:      "www.example.test",
		UserAgent: "crawler-test",
		Cookie:    "session=abc",
		Timeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	body, err := f.Fetch(ctx, "listings", 7)
	if err != nil || string(body) != `{"data":{"id":7}}` {
		t.Fatalf("fetch 7: %q %v", body, err)
	}
	if gotPath != "/api/listings/7" || gotUA != "crawler-test" || gotCookie != "session=abc" || gotHost != "www.example.test" {
		t.Fatalf("request path=%s ua=%s cookie=%s host=%s", gotPath, gotUA, gotCookie, gotHost)
	}

	// error envelopes are documents, not fetch failures
	if body, err := f.Fetch(ctx, "listings", 8); err != nil || string(body) != `{"error":"not found"}` {
		t.Fatalf("fetch 8: %q %v", body, err)
	}

	_, err = f.Fetch(ctx, "listings", 9)
	var fe *crawl.FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusServiceUnavailable {
		t.Fatalf("want FetchError 503, got %v", err)
	}

	if _, err := crawl.NewHTTPFetcher(crawl.HTTPFetcherOptions{}); err == nil {
		t.Fatal("missing base url accepted")
	}
}

func TestFileSinkWritesCompactJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "json")
	s := &crawl.FileSink{Dir: dir}
	if err := s.Accept(context.Background(), "listings", 12, []byte("{\n  \"data\": {\"id\": 12}\n}")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "12.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"data":{"id":12}}` {
		t.Fatalf("file = %s", b)
	}
}

func TestCrawlIntoStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if _, err := fmt.Sscanf(r.URL.Path, "/listings/%d", &id); err != nil || id == 2 {
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		fmt.Fprintf(w, `{"data":{"id":%d,"designer":{"id":1,"name":"Acne"},"seller":{"id":50},"photos":[{"id":%d}]}}`, id, id*10)
	}))
	defer srv.Close()

	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	log := &applog.Logger{RunID: "crawl-test"}
	ingest := services.NewIngestService(db, log, nil)

	f, err := crawl.NewHTTPFetcher(crawl.HTTPFetcherOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	c := &crawl.Crawler{
		Entity:  "listings",
		MaxID:   4,
		Cursor:  &crawl.FileCursor{Path: filepath.Join(dir, "next_index"), Start: 1},
		Fetcher: f,
		Sink:    crawl.Sinks{&crawl.FileSink{Dir: filepath.Join(dir, "json")}, &crawl.IngestSink{Ingest: ingest}},
		Log:     log,
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for id, want := range map[int64]bool{1: true, 2: false, 3: true} {
		if ok, _ := ingest.Listings.Exists(ctx, id); ok != want {
			t.Fatalf("listing %d stored=%v want %v", id, ok, want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "json", "2.json")); err != nil {
		t.Fatalf("error envelope should still be saved: %v", err)
	}
}

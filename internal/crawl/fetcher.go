package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher retrieves the raw response envelope for one entity id.
type Fetcher interface {
	Fetch(ctx context.Context, entity string, id int64) ([]byte, error)
}

// FetchError reports a network failure or an unusable response body.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var errNotJSON = errors.New("response body is not JSON")

type HTTPFetcherOptions struct {
	BaseURL   string
	Host      string
	UserAgent string
	Cookie    string
	Timeout   time.Duration
	Retries   int
}

// HTTPFetcher issues GET {base}/{entity}/{id} with the caller's identity
// headers. Error envelopes come back as bodies; only transport failures and
// non-JSON bodies are errors.
type HTTPFetcher struct {
	base   string
	client *resty.Client
}

func NewHTTPFetcher(opts HTTPFetcherOptions) (*HTTPFetcher, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("BaseURL is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(opts.Retries)
	client.SetRetryWaitTime(time.Second)
	client.SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Cookie != "" {
		client.SetHeader("Cookie", opts.Cookie)
	}
	if host := opts.Host; host != "" {
		// net/http ignores a Host header; it has to go on the request itself
		client.SetPreRequestHook(func(_ *resty.Client, r *http.Request) error {
			r.Host = host
			return nil
		})
	}
	return &HTTPFetcher{base: base, client: client}, nil
}

// URL returns the endpoint for one id.
func (f *HTTPFetcher) URL(entity string, id int64) string {
	return fmt.Sprintf("%s/%s/%d", f.base, entity, id)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, entity string, id int64) ([]byte, error) {
	u := f.URL(entity, id)
	resp, err := f.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	body := resp.Body()
	if !json.Valid(body) {
		return nil, &FetchError{URL: u, Status: resp.StatusCode(), Err: errNotJSON}
	}
	return body, nil
}

package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/joshdurbin/activity-export/internal/config"
	"github.com/joshdurbin/activity-export/internal/logging"
)

// Default retry settings for remote exports
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	requestTimeout        = 60 * time.Second
)

// SourceNotFoundError reports a local export path that does not exist
type SourceNotFoundError struct {
	Path string
	Knob string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source export not found at %q (set %s or pass --source)", e.Path, e.Knob)
}

// RetryConfig holds retry/backoff settings for remote exports
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: defaultMaxRetries,
		MinWait:    defaultInitialBackoff,
		MaxWait:    defaultMaxBackoff,
	}
}

// Fetcher loads export documents from local paths or http(s) URLs
type Fetcher struct {
	httpClient *retryablehttp.Client
}

// NewFetcher creates a fetcher with the given retry settings
func NewFetcher(cfg RetryConfig) *Fetcher {
	log := logging.Logger
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = cfg.MinWait
	client.RetryWaitMax = cfg.MaxWait
	client.HTTPClient.Timeout = requestTimeout
	client.Logger = &logging.LeveledLogger{}

	// Retry on connection errors, 429 and 5xx. Other 4xx are final.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return true, nil
		}
		return resp.StatusCode >= 500, nil
	}

	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, retry int) {
		if retry > 0 {
			log.Info().
				Str("url", req.URL.Redacted()).
				Int("attempt", retry+1).
				Msg("retrying export download")
		}
		if logging.IsTraceEnabled() {
			log.Debug().
				Str("method", req.Method).
				Str("url", req.URL.Redacted()).
				Str("headers", formatHeaders(req.Header)).
				Msg("request headers")
		}
	}

	client.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		if logging.IsTraceEnabled() {
			log.Debug().
				Int("status", resp.StatusCode).
				Str("headers", formatHeaders(resp.Header)).
				Msg("response headers")
		}
	}

	return &Fetcher{httpClient: client}
}

// ReadRecords loads the export at src with default retry settings and extracts its records
func ReadRecords(ctx context.Context, src string) ([]Record, error) {
	return NewFetcher(DefaultRetryConfig()).ReadRecords(ctx, src)
}

// ReadRecords loads the export at src and extracts its records
func (f *Fetcher) ReadRecords(ctx context.Context, src string) ([]Record, error) {
	ex, err := f.ReadExport(ctx, src)
	if err != nil {
		return nil, err
	}
	return ex.Records, nil
}

// ReadExport loads the export at src and extracts its records and key order
func (f *Fetcher) ReadExport(ctx context.Context, src string) (*Export, error) {
	data, err := f.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	logging.Debug("export loaded", "source", src, "size", humanize.Bytes(uint64(len(data))))

	ex, err := DecodeExport(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	logging.Info("export records extracted", "source", src, "records", len(ex.Records), "columns", len(ex.Columns))
	return ex, nil
}

// Read returns the raw bytes of the export at src
func (f *Fetcher) Read(ctx context.Context, src string) ([]byte, error) {
	if IsRemote(src) {
		return f.download(ctx, src)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceNotFoundError{Path: src, Knob: config.SourceEnvVar}
		}
		return nil, fmt.Errorf("reading source export: %w", err)
	}
	return data, nil
}

// IsRemote reports whether src is an http(s) URL
func IsRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &SourceNotFoundError{Path: url, Knob: config.SourceEnvVar}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading export: unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading export body: %w", err)
	}
	return data, nil
}

func formatHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		v := strings.Join(h[k], ",")
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") {
			v = "<redacted>"
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "; ")
}

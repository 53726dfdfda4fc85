package contentprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"signagerec/internal/config"
	"signagerec/internal/render"
)

const maxBodyBytes = 8 << 20

// ErrFieldMissing is returned when the page has no element matching the selector.
var ErrFieldMissing = errors.New("duration field not found in static html")

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Result describes one probe.
type Result struct {
	URL        string
	StatusCode int
	Elapsed    time.Duration
	Title      string
	RawValue   string
	Seconds    int
}

// Prober fetches and parses the content source.
type Prober struct {
	client   *http.Client
	selector string
	param    string
}

// New returns a prober. A nil client gets a 30s timeout default.
func New(client *http.Client, selector, cacheBustParam string) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Prober{client: client, selector: selector, param: cacheBustParam}
}

// NewFromConfig builds a prober whose timeout matches the navigation ceiling.
func NewFromConfig(cfg *config.Config) *Prober {
	timeout := cfg.NavigationTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return New(&http.Client{Timeout: timeout}, cfg.Content.DurationSelector, cfg.Content.CacheBustParam)
}

// Probe fetches base and extracts the duration field.
func (p *Prober) Probe(ctx context.Context, base string) (Result, error) {
	target, err := render.BuildURL(base, p.param, time.Now())
	if err != nil {
		return Result{}, err
	}
	result := Result{URL: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return result, err
	}
	for name, value := range render.NoCacheHeaders {
		req.Header.Set(name, value)
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("fetch content: %w", err)
	}
	defer resp.Body.Close()
	result.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &HTTPStatusError{URL: target, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	result.Elapsed = time.Since(started)
	if err != nil {
		return result, fmt.Errorf("read content: %w", err)
	}

	title, raw, err := Parse(body, p.selector)
	result.Title = title
	result.RawValue = raw
	if err != nil {
		return result, err
	}
	seconds, err := render.ParseDuration(raw)
	if err != nil {
		return result, err
	}
	result.Seconds = seconds
	return result, nil
}

// Parse returns the page title and the value attribute of the first element
// matching selector.
func Parse(html []byte, selector string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	field := doc.Find(selector).First()
	if field.Length() == 0 {
		return title, "", fmt.Errorf("%w: %s", ErrFieldMissing, selector)
	}
	value, _ := field.Attr("value")
	return title, value, nil
}

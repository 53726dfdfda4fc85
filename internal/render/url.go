package render

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BuildURL appends param=<unix millis of now> to base, preserving any
// existing query. An empty param leaves the URL unchanged.
func BuildURL(base, param string, now time.Time) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse content url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("parse content url: %q is not absolute", base)
	}
	param = strings.TrimSpace(param)
	if param == "" {
		return parsed.String(), nil
	}
	query := parsed.Query()
	query.Set(param, strconv.FormatInt(now.UnixMilli(), 10))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

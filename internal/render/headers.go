package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
)

// NoCacheHeaders are set on the page and on every intercepted request.
var NoCacheHeaders = map[string]string{
	"Cache-Control": "no-cache",
	"Pragma":        "no-cache",
}

func extraHeaders() network.Headers {
	headers := make(network.Headers, len(NoCacheHeaders))
	for name, value := range NoCacheHeaders {
		headers[name] = value
	}
	return headers
}

// mergeNoCache returns the request's headers with the no-cache pair forced,
// replacing any existing value regardless of case.
func mergeNoCache(original network.Headers) []*fetch.HeaderEntry {
	merged := make(map[string]string, len(original)+len(NoCacheHeaders))
	for name, value := range original {
		if _, forced := lookupFold(NoCacheHeaders, name); forced {
			continue
		}
		merged[name] = fmt.Sprint(value)
	}
	for name, value := range NoCacheHeaders {
		merged[name] = value
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]*fetch.HeaderEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, &fetch.HeaderEntry{Name: name, Value: merged[name]})
	}
	return entries
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for name, value := range m {
		if strings.EqualFold(name, key) {
			return value, true
		}
	}
	return "", false
}

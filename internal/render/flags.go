package render

import (
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
)

type chromeFlag struct {
	name  string
	value any
}

// chromeFlags lists the switches that make Chrome a visible, fullscreen,
// cache-free kiosk on the configured display.
func chromeFlags(opts Options) []chromeFlag {
	flags := []chromeFlag{
		{"headless", false},
		{"no-sandbox", true},
		{"disable-setuid-sandbox", true},
		{"start-fullscreen", true},
		{"window-size", strconv.Itoa(opts.Width) + "," + strconv.Itoa(opts.Height)},
		{"window-position", "0,0"},
		{"hide-scrollbars", true},
		{"disable-infobars", true},
		{"disable-features", "TranslateUI,ApplicationCache,IsolateOrigins,site-per-process"},
		{"disable-application-cache", true},
		{"disk-cache-dir", "/dev/null"},
		{"disk-cache-size", "1"},
		{"media-cache-size", "1"},
		{"disable-offline-load-stale-cache", true},
		{"disable-background-networking", true},
		{"disable-sync", true},
		{"disable-translate", true},
		{"force-device-scale-factor", "1"},
		{"autoplay-policy", "no-user-gesture-required"},
	}
	for _, extra := range opts.ExtraFlags {
		extra = strings.TrimLeft(strings.TrimSpace(extra), "-")
		if extra == "" {
			continue
		}
		name, value, hasValue := strings.Cut(extra, "=")
		if hasValue {
			flags = append(flags, chromeFlag{name, value})
		} else {
			flags = append(flags, chromeFlag{name, true})
		}
	}
	return flags
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, flag := range chromeFlags(opts) {
		options = append(options, chromedp.Flag(flag.name, flag.value))
	}
	if display := strings.TrimSpace(opts.Display); display != "" {
		options = append(options, chromedp.Env("DISPLAY="+display))
	}
	if execPath := strings.TrimSpace(opts.ExecPath); execPath != "" {
		options = append(options, chromedp.ExecPath(execPath))
	}
	return options
}

// Package render drives a visible Chrome window to a fresh load of the
// slideshow page and reads the playback length it declares.
//
// Chrome is launched through chromedp with every cache it has disabled. Each
// outgoing request is paused by the Fetch domain and continued with no-cache
// headers, the URL carries a cache-busting timestamp, and navigation waits for
// the networkAlmostIdle lifecycle event. Pure helpers (BuildURL,
// ParseDuration, the flag and header builders) are exported or kept small so
// they can be tested without a browser.
package render

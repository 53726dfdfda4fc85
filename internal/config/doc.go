// Package config loads, normalizes, and validates signagerec configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SIGNAGEREC_CONTENT_URL and DISPLAY. The Config type centralizes every knob
// the recorder needs: marker locations, the content source, the X display the
// browser and encoder share, and the capture encoder settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

package render

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration converts the duration field value into seconds. The value is
// returned as-is, including zero or negative numbers; range policy belongs to
// the caller.
func ParseDuration(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	seconds, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, raw)
	}
	return seconds, nil
}

package orchestrator

import (
	"errors"
	"fmt"

	"signagerec/internal/config"
)

// ErrInvalidDuration is returned when the page reports a non-positive length
// and the duration policy rejects it.
var ErrInvalidDuration = errors.New("content reported a non-positive duration")

// applyDurationPolicy resolves the capture length for a reported value.
func applyDurationPolicy(policy string, minSeconds, reported int) (int, error) {
	if reported > 0 {
		return reported, nil
	}
	if policy == config.DurationPolicyClamp {
		return max(minSeconds, 1), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidDuration, reported)
}

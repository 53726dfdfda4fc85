package orchestrator

import (
	"errors"
	"testing"

	"signagerec/internal/config"
)

func TestApplyDurationPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   string
		min      int
		reported int
		want     int
		wantErr  bool
	}{
		{"positive passes through", config.DurationPolicyReject, 1, 15, 15, false},
		{"zero rejected", config.DurationPolicyReject, 1, 0, 0, true},
		{"negative rejected", config.DurationPolicyReject, 1, -3, 0, true},
		{"zero clamped", config.DurationPolicyClamp, 5, 0, 5, false},
		{"negative clamped", config.DurationPolicyClamp, 5, -1, 5, false},
		{"clamp floor is one second", config.DurationPolicyClamp, 0, 0, 1, false},
		{"clamp leaves positive alone", config.DurationPolicyClamp, 30, 10, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyDurationPolicy(tt.policy, tt.min, tt.reported)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDuration) {
					t.Fatalf("expected ErrInvalidDuration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d want %d", got, tt.want)
			}
		})
	}
}

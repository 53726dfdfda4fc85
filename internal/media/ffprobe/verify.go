package ffprobe

import (
	"context"
	"fmt"
	"math"
)

// Verification compares a capture's measured length with the requested one.
type Verification struct {
	ExpectedSeconds int
	MeasuredSeconds float64
	DriftSeconds    float64
	Tolerance       float64
	Width           int
	Height          int
	Codec           string
}

// WithinTolerance reports whether the drift is inside the configured tolerance.
func (v Verification) WithinTolerance() bool {
	return math.Abs(v.DriftSeconds) <= v.Tolerance
}

// InspectFunc matches Inspect and exists so tests can skip the binary.
type InspectFunc func(ctx context.Context, binary, path string) (Result, error)

// Verifier measures finished captures.
type Verifier struct {
	binary    string
	tolerance float64
	inspect   InspectFunc
}

// NewVerifier returns a verifier using the ffprobe binary and a drift tolerance in seconds.
func NewVerifier(binary string, tolerance float64) *Verifier {
	return &Verifier{binary: binary, tolerance: tolerance, inspect: Inspect}
}

// WithInspect replaces the probe function.
func (v *Verifier) WithInspect(fn InspectFunc) *Verifier {
	if fn != nil {
		v.inspect = fn
	}
	return v
}

// Verify probes path and compares its duration against expectedSeconds.
func (v *Verifier) Verify(ctx context.Context, path string, expectedSeconds int) (Verification, error) {
	result, err := v.inspect(ctx, v.binary, path)
	if err != nil {
		return Verification{}, err
	}
	stream, ok := result.VideoStream()
	if !ok {
		return Verification{}, fmt.Errorf("ffprobe verify: %s has no video stream", path)
	}
	measured := result.DurationSeconds()
	return Verification{
		ExpectedSeconds: expectedSeconds,
		MeasuredSeconds: measured,
		DriftSeconds:    measured - float64(expectedSeconds),
		Tolerance:       v.tolerance,
		Width:           stream.Width,
		Height:          stream.Height,
		Codec:           stream.CodecName,
	}, nil
}

package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"signagerec/internal/capture"
	"signagerec/internal/render"
	"signagerec/internal/trigger"
)

type fakePage struct {
	duration   int
	loadErr    error
	readErr    error
	closeErr   error
	closeCalls atomic.Int32
	loaded     string
}

func (p *fakePage) Load(_ context.Context, base string) (string, error) {
	p.loaded = base + "?_=1"
	return p.loaded, p.loadErr
}

func (p *fakePage) ReadDuration(ctx context.Context) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	return p.duration, ctx.Err()
}

func (p *fakePage) Close() error {
	p.closeCalls.Add(1)
	return p.closeErr
}

type fakeLauncher struct {
	mu      sync.Mutex
	page    *fakePage
	openErr error
	opens   int
}

func (l *fakeLauncher) Open(context.Context) (render.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opens++
	if l.openErr != nil {
		return nil, l.openErr
	}
	return l.page, nil
}

func (l *fakeLauncher) Opens() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opens
}

// fakeRecorder writes a file standing in for the encoded video.
type fakeRecorder struct {
	mu       sync.Mutex
	exitCode int
	err      error
	seconds  []int
	started  chan struct{}
	release  chan struct{}
	panicMsg string

	active    atomic.Int32
	maxActive atomic.Int32
}

func (r *fakeRecorder) Record(ctx context.Context, seconds int, output string) (capture.Result, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		current := r.maxActive.Load()
		if n <= current || r.maxActive.CompareAndSwap(current, n) {
			break
		}
	}

	r.mu.Lock()
	r.seconds = append(r.seconds, seconds)
	r.mu.Unlock()

	result := capture.Result{Output: output, Seconds: seconds, StartedAt: time.Now(), ExitCode: -1}
	if r.started != nil {
		close(r.started)
	}
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			result.EndedAt = time.Now()
			return result, ctx.Err()
		}
	}
	if r.err != nil {
		return capture.Result{}, r.err
	}
	if err := os.WriteFile(output, []byte("fresh video"), 0o644); err != nil {
		return result, err
	}
	result.ExitCode = r.exitCode
	result.EndedAt = time.Now()
	return result, nil
}

func (r *fakeRecorder) Calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seconds...)
}

// faultyStore injects errors into selected operations of a real store.
type faultyStore struct {
	trigger.Store
	createErr error
	removeErr map[trigger.Marker]error
}

func (s *faultyStore) CreateExclusive(m trigger.Marker, payload []byte) error {
	if s.createErr != nil && m == trigger.Busy {
		return s.createErr
	}
	return s.Store.CreateExclusive(m, payload)
}

func (s *faultyStore) Remove(m trigger.Marker) error {
	if err, ok := s.removeErr[m]; ok {
		return err
	}
	return s.Store.Remove(m)
}

var errBoom = errors.New("boom")

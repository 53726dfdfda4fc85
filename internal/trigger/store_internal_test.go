package trigger

import (
	"errors"
	"os"
	"testing"
)

var errDiskFull = errors.New("file too large")

func TestCreateExclusiveRemovesPartialMarker(t *testing.T) {
	store := NewFileStore(t.TempDir(), Names{Busy: "tv-recording.flag", Lock: "signagerec.lock"})
	store.fill = func(f markerFile, payload []byte) error {
		if _, err := f.Write(payload[:4]); err != nil {
			return err
		}
		return errDiskFull
	}

	err := store.CreateExclusive(Busy, []byte(`{"run_id":"abc"}`))
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if _, statErr := os.Stat(store.Path(Busy)); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("partial busy marker left behind: %v", statErr)
	}

	store.fill = nil
	if err := store.CreateExclusive(Busy, []byte(`{"run_id":"def"}`)); err != nil {
		t.Fatalf("next create should succeed, got %v", err)
	}
}

func TestFillMarkerSurfacesSyncFailure(t *testing.T) {
	f := &failingFile{syncErr: errors.New("io error")}
	if err := fillMarker(f, []byte("x")); !errors.Is(err, f.syncErr) {
		t.Fatalf("expected sync error, got %v", err)
	}
	if string(f.written) != "x" {
		t.Fatalf("expected payload written before sync, got %q", f.written)
	}
}

type failingFile struct {
	written []byte
	syncErr error
}

func (f *failingFile) Write(p []byte) (int, error) {
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *failingFile) Sync() error { return f.syncErr }

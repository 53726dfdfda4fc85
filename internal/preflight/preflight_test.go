package preflight

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"signagerec/internal/config"
	"signagerec/internal/contentprobe"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestDisplayNumber(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		local   bool
		wantErr bool
	}{
		{in: ":99", want: 99, local: true},
		{in: ":0.0", want: 0, local: true},
		{in: "unix:1", want: 1, local: true},
		{in: "kiosk:0", local: false},
		{in: "99", wantErr: true},
		{in: ":x", wantErr: true},
	}
	for _, tc := range cases {
		got, local, err := DisplayNumber(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("DisplayNumber(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want || local != tc.local {
			t.Errorf("DisplayNumber(%q) = %d, %v, %v", tc.in, got, local, err)
		}
	}
}

func TestCheckDisplayListening(t *testing.T) {
	dir := t.TempDir()
	listener, err := net.Listen("unix", filepath.Join(dir, "X42"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	if result := CheckDisplay("X display", ":42", dir); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckDisplay("X display", ":43", dir); result.Passed {
		t.Fatal("expected failure without a socket")
	}
}

func TestCheckDisplayRemoteSkipped(t *testing.T) {
	result := CheckDisplay("X display", "kiosk:0", t.TempDir())
	if !result.Passed || !strings.Contains(result.Detail, "remote") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/static":
			_, _ = w.Write([]byte(`<html><body><input type="hidden" name="duration" value="20"></body></html>`))
		case "/script":
			_, _ = w.Write([]byte(`<html><body><script>render()</script></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	prober := contentprobe.New(srv.Client(), `input[type="hidden"][name="duration"]`, "_")
	if result := CheckContent(context.Background(), prober, srv.URL+"/static"); !result.Passed || !strings.Contains(result.Detail, "20s") {
		t.Fatalf("unexpected static result %+v", result)
	}
	if result := CheckContent(context.Background(), prober, srv.URL+"/script"); !result.Passed {
		t.Fatalf("script-rendered field should pass, got %+v", result)
	}
	result := CheckContent(context.Background(), prober, srv.URL+"/missing")
	if result.Passed || result.Detail != "unexpected status 404" {
		t.Fatalf("unexpected missing result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAllWithoutProberSkipsContent(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Content.URL = "http://signage.invalid/tv"

	results := RunAll(context.Background(), &cfg, nil)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := []string{"State directory", "X display", "FFmpeg", "FFprobe", "Chrome"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected checks %v", names)
	}
	if !results[0].Passed {
		t.Fatalf("state dir check failed: %s", results[0].Detail)
	}
}

func TestBlockingIgnoresOptional(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Optional: true},
		{Name: "c"},
	}
	blocking := Blocking(results)
	if len(blocking) != 1 || blocking[0].Name != "c" {
		t.Fatalf("unexpected blocking results %+v", blocking)
	}
}

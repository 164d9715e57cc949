package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSampleFor(t *testing.T) {
	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{"/data/ztautau", "ztautau", true},
		{"/data/ztautau/meta.xml", "ztautau", true},
		{"/data/ztautau/ds/a.root", "ztautau", true},
		{"/data", "", false},
		{"/elsewhere/x", "", false},
		{"/data/.hidden/x", "", false},
	}
	for _, tc := range cases {
		got, ok := SampleFor("/data", tc.path)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("SampleFor(%q) = %q %v, expected %q %v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDepth(t *testing.T) {
	if d := depth("/data", "/data"); d != 0 {
		t.Fatalf("expected depth 0, got %d", d)
	}
	if d := depth("/data", "/data/s/ds"); d != 2 {
		t.Fatalf("expected depth 2, got %d", d)
	}
	if d := depth("/data", "/other"); d != -1 {
		t.Fatalf("expected depth -1, got %d", d)
	}
}

func TestRunReportsChangedSample(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "ztautau"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	changed := make(chan string, 16)
	w := New(root, func(_ context.Context, sample string) error {
		changed <- sample
		return nil
	}, nil, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	select {
	case <-w.Started():
	case err := <-done:
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not start")
	}

	if err := os.WriteFile(filepath.Join(root, "ztautau", "meta.xml"), []byte("<meta/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-changed:
		if got != "ztautau" {
			t.Fatalf("expected ztautau, got %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected refresh for ztautau")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestDueSamplesTracksEachSampleSeparately(t *testing.T) {
	start := time.Unix(1000, 0)
	debounce := 100 * time.Millisecond
	pending := map[string]time.Time{
		"quiet": start,
		"busy":  start.Add(90 * time.Millisecond),
		"data":  start.Add(10 * time.Millisecond),
	}

	due, next := dueSamples(pending, start.Add(110*time.Millisecond), debounce)
	if len(due) != 2 || due[0] != "data" || due[1] != "quiet" {
		t.Fatalf("expected [data quiet], got %v", due)
	}
	if _, ok := pending["busy"]; !ok || len(pending) != 1 {
		t.Fatalf("expected only busy to stay pending, got %v", pending)
	}
	if want := start.Add(190 * time.Millisecond); !next.Equal(want) {
		t.Fatalf("expected next deadline %v, got %v", want, next)
	}

	due, next = dueSamples(pending, start.Add(190*time.Millisecond), debounce)
	if len(due) != 1 || due[0] != "busy" || !next.IsZero() || len(pending) != 0 {
		t.Fatalf("expected busy due and nothing left, got %v %v %v", due, next, pending)
	}
}

func TestRunBusySampleDoesNotDelayOthers(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"busy", "quiet"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	changed := make(chan string, 64)
	w := New(root, func(_ context.Context, sample string) error {
		changed <- sample
		return nil
	}, nil, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Run(ctx)
	}()
	select {
	case <-w.Started():
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not start")
	}

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		deadline := time.After(5 * time.Second)
		for {
			select {
			case <-stop:
				return
			case <-deadline:
				return
			case <-time.After(20 * time.Millisecond):
				_ = os.WriteFile(filepath.Join(root, "busy", "meta.xml"), []byte(time.Now().String()), 0o644)
			}
		}
	}()
	if err := os.WriteFile(filepath.Join(root, "quiet", "meta.xml"), []byte("<meta/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for {
		select {
		case got := <-changed:
			if got != "quiet" {
				continue
			}
			select {
			case <-writerDone:
				t.Fatalf("expected quiet to refresh while busy was still changing")
			default:
			}
			close(stop)
			<-writerDone
			return
		case <-writerDone:
			t.Fatalf("expected quiet to refresh while busy was still changing")
		}
	}
}

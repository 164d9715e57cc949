package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/samplecat/internal/model"
	"github.com/verte-zerg/samplecat/internal/resolver"
	"github.com/verte-zerg/samplecat/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func buildRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ztautau", "meta.xml"),
		"<meta><type>MC</type><class>SIGNAL</class><weight>2*0.5</weight><tree>tau</tree></meta>")
	writeFile(t, filepath.Join(root, "ztautau", "group10.perf-tau.mc10_7TeV.106052.PythiaZtautau.e574_s933.D3PD", "a.root"), "x")
	writeFile(t, filepath.Join(root, "data", "meta.xml"),
		"<meta><type>DATA</type><class>BACKGROUND</class><weight>1</weight><tree>tau</tree></meta>")
	writeFile(t, filepath.Join(root, "data",
		"group10.phys-higgs.153565.physics_JetTauEtmiss.r1774.01-00.D3PD_StreamD3PD_TauMEDIUM", "d.root"), "x")
	writeFile(t, filepath.Join(root, "broken", "meta.xml"),
		"<meta><type>MC</type><class>FOO</class><weight>1</weight><tree>tau</tree></meta>")
	if err := os.MkdirAll(filepath.Join(root, "scratch"), 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	return root
}

func newTestCatalog(t *testing.T, root string) (*Catalog, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return New(resolver.New(resolver.Config{Root: root}), st, nil, 2), st
}

func TestDiscoverSamples(t *testing.T) {
	root := buildRoot(t)
	names, err := DiscoverSamples(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	want := []string{"broken", "data", "ztautau"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestScanStoresResolvedSamples(t *testing.T) {
	root := buildRoot(t)
	cat, st := newTestCatalog(t, root)
	ctx := context.Background()

	summary, err := cat.Scan(ctx, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.Resolved != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !errors.Is(summary.Failures["broken"], resolver.ErrUnknownClass) {
		t.Fatalf("expected broken to fail with unknown class, got %v", summary.Failures["broken"])
	}
	if summary.ScanID == "" {
		t.Fatalf("expected scan id")
	}

	entries, err := st.ListSamples(ctx, model.CatalogFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 catalog entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ScanID != summary.ScanID {
			t.Fatalf("expected entries to carry scan id, got %q", e.ScanID)
		}
	}
	mc, err := st.GetSample(ctx, "ztautau")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if mc.Sample.Weight != 1 || len(mc.Sample.Files) != 1 {
		t.Fatalf("unexpected stored sample: %+v", mc)
	}
}

func TestScanWithPeriodsSuffixesDataOnly(t *testing.T) {
	root := buildRoot(t)
	cat, st := newTestCatalog(t, root)
	ctx := context.Background()

	if _, err := cat.Scan(ctx, []string{"AB"}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	data, err := st.GetSample(ctx, "dataAB")
	if err != nil {
		t.Fatalf("expected period-suffixed data sample: %v", err)
	}
	if data.Base != "data" || len(data.Periods) != 1 || data.Periods[0] != "AB" {
		t.Fatalf("unexpected data entry: %+v", data)
	}
	mc, err := st.GetSample(ctx, "ztautau")
	if err != nil {
		t.Fatalf("expected unsuffixed mc sample: %v", err)
	}
	if len(mc.Periods) != 0 {
		t.Fatalf("expected mc entry without periods, got %v", mc.Periods)
	}
}

func TestScanCanceledContext(t *testing.T) {
	root := buildRoot(t)
	cat, _ := newTestCatalog(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cat.Scan(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRefreshDropsRemovedSample(t *testing.T) {
	root := buildRoot(t)
	cat, st := newTestCatalog(t, root)
	ctx := context.Background()

	if err := cat.Refresh(ctx, "ztautau", nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := st.GetSample(ctx, "ztautau"); err != nil {
		t.Fatalf("expected sample after refresh: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(root, "ztautau")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := cat.Refresh(ctx, "ztautau", nil); err != nil {
		t.Fatalf("refresh after removal: %v", err)
	}
	if _, err := st.GetSample(ctx, "ztautau"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected sample to be dropped, got %v", err)
	}
}

func TestRefreshReportsResolveErrors(t *testing.T) {
	root := buildRoot(t)
	cat, _ := newTestCatalog(t, root)
	if err := cat.Refresh(context.Background(), "broken", nil); !errors.Is(err, resolver.ErrUnknownClass) {
		t.Fatalf("expected ErrUnknownClass, got %v", err)
	}
}

func TestRefreshDropsSampleThatStopsResolving(t *testing.T) {
	root := buildRoot(t)
	cat, st := newTestCatalog(t, root)
	ctx := context.Background()

	if err := cat.Refresh(ctx, "ztautau", nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "ztautau", "meta.xml")); err != nil {
		t.Fatalf("remove metadata: %v", err)
	}
	if err := cat.Refresh(ctx, "ztautau", nil); !errors.Is(err, resolver.ErrMetadataMissing) {
		t.Fatalf("expected ErrMetadataMissing, got %v", err)
	}
	if _, err := st.GetSample(ctx, "ztautau"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unresolvable sample to be dropped, got %v", err)
	}
}

func TestScanDropsSampleThatStopsResolving(t *testing.T) {
	root := buildRoot(t)
	cat, st := newTestCatalog(t, root)
	ctx := context.Background()

	if _, err := cat.Scan(ctx, nil); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := st.GetSample(ctx, "ztautau"); err != nil {
		t.Fatalf("expected ztautau after first scan: %v", err)
	}
	writeFile(t, filepath.Join(root, "ztautau", "meta.xml"),
		"<meta><type>MC</type><class>FOO</class><weight>1</weight><tree>tau</tree></meta>")

	summary, err := cat.Scan(ctx, nil)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !errors.Is(summary.Failures["ztautau"], resolver.ErrUnknownClass) {
		t.Fatalf("expected ztautau to fail with unknown class, got %v", summary.Failures["ztautau"])
	}
	if _, err := st.GetSample(ctx, "ztautau"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unresolvable sample to be dropped, got %v", err)
	}
	if _, err := st.GetSample(ctx, "data"); err != nil {
		t.Fatalf("expected data to stay cataloged: %v", err)
	}
}

func TestScanReportsNameClaimedByAnotherDirectory(t *testing.T) {
	root := buildRoot(t)
	writeFile(t, filepath.Join(root, "dataAB", "meta.xml"),
		"<meta><type>MC</type><class>SIGNAL</class><weight>1</weight><tree>other</tree></meta>")
	cat, st := newTestCatalog(t, root)
	ctx := context.Background()

	summary, err := cat.Scan(ctx, []string{"AB"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !errors.Is(summary.Failures["dataAB"], store.ErrNameConflict) {
		t.Fatalf("expected dataAB to conflict, got %v", summary.Failures["dataAB"])
	}
	got, err := st.GetSample(ctx, "dataAB")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Base != "data" || got.Sample.Tree != "tau" {
		t.Fatalf("expected entry from data directory to be kept, got %+v", got)
	}
}

package catalog

import (
	"context"
	"errors"
	"testing"
)

func resolverBackend() *fakeBackend {
	return &fakeBackend{
		roots: []RawEntry{
			container("sp", "SPACE", "Analytics"),
			container("src", "SOURCE", "warehouse"),
		},
		children: map[string][]RawEntry{
			"sp": {
				viewEntry("v1", "Analytics", "revenue"),
				RawEntry{"id": "t1", "type": "DATASET", "datasetType": "PHYSICAL_DATASET", "path": []any{"Analytics", "raw"}},
			},
			"src": {
				RawEntry{"id": "v2", "type": "DATASET", "datasetType": "VIRTUAL", "path": []any{"warehouse", "curated"}},
			},
		},
		entities: map[string]RawEntry{
			"v1": {"id": "v1", "type": "VIRTUAL_DATASET", "path": []any{"Analytics", "revenue"}, "sql": "SELECT * FROM raw"},
			"v2": {"id": "v2", "type": "VIRTUAL_DATASET", "path": []any{"warehouse", "curated"}, "view": map[string]any{"sql": "SELECT 2"}},
		},
	}
}

func TestListViews_AllRoots(t *testing.T) {
	t.Parallel()

	r := NewResolver(resolverBackend(), nil)
	views, err := r.ListViews(context.Background(), ListOptions{HydrateSQL: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}

	byID := make(map[string]ViewRecord)
	for _, v := range views {
		byID[v.ID] = v
	}
	if byID["v1"].SQL != "SELECT * FROM raw" {
		t.Errorf("v1 not hydrated: %+v", byID["v1"])
	}
	if byID["v2"].SQL != "SELECT 2" {
		t.Errorf("v2 not hydrated from nested view.sql: %+v", byID["v2"])
	}
	if byID["v1"].PathString != "Analytics.revenue" {
		t.Errorf("v1 PathString = %q", byID["v1"].PathString)
	}
}

func TestListViews_RootFilterCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := NewResolver(resolverBackend(), nil)
	views, err := r.ListViews(context.Background(), ListOptions{Roots: []string{"WAREHOUSE"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(views) != 1 || views[0].ID != "v2" {
		t.Fatalf("got %+v, want only v2", views)
	}
}

func TestListViews_NoHydration(t *testing.T) {
	t.Parallel()

	r := NewResolver(resolverBackend(), nil)
	views, err := r.ListViews(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range views {
		if v.SQL != "" {
			t.Errorf("view %s has SQL without hydration", v.ID)
		}
	}
}

// TestListViews_HydrationFailureNonFatal: a failed entity fetch keeps the
// record with empty SQL.
func TestListViews_HydrationFailureNonFatal(t *testing.T) {
	t.Parallel()

	backend := resolverBackend()
	backend.entityErr = map[string]error{"v1": errors.New("500")}

	r := NewResolver(backend, nil)
	views, err := r.ListViews(context.Background(), ListOptions{Roots: []string{"analytics"}, HydrateSQL: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].SQL != "" {
		t.Errorf("expected empty SQL after failed hydration, got %q", views[0].SQL)
	}
}

func TestListViews_RootsError(t *testing.T) {
	t.Parallel()

	r := NewResolver(&fakeBackend{rootsErr: errors.New("unreachable")}, nil)
	if _, err := r.ListViews(context.Background(), ListOptions{}); err == nil {
		t.Fatal("expected error when root listing fails")
	}
}

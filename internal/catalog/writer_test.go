package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestQuoteIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{[]string{"Space", "view"}, `"Space"."view"`},
		{[]string{`we"ird`}, `"we""ird"`},
		{[]string{"a", "b.c", "d"}, `"a"."b.c"."d"`},
	}
	for _, tt := range tests {
		if got := QuoteIdentifier(tt.path); got != tt.want {
			t.Errorf("QuoteIdentifier(%v) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestCreateOrReplaceView_Statement(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{submitID: "job-7"}
	w := NewWriter(backend, nil)

	res, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
		Path:      []string{"Space", "my_view"},
		Select:    "SELECT * FROM t;",
		Strategy:  StrategyStatement,
		OrReplace: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.JobID != "job-7" {
		t.Errorf("JobID = %q", res.JobID)
	}
	if res.PathString != "Space.my_view" {
		t.Errorf("PathString = %q", res.PathString)
	}

	want := `CREATE OR REPLACE VIEW "Space"."my_view" AS SELECT * FROM t`
	if len(backend.submitted) != 1 || backend.submitted[0] != want {
		t.Errorf("submitted = %v, want %q", backend.submitted, want)
	}
}

func TestCreateOrReplaceView_StatementNoReplace(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	w := NewWriter(backend, nil)

	if _, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
		Path:     []string{"s", "v"},
		Select:   "select 1",
		Strategy: StrategyStatement,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(backend.submitted[0], "CREATE VIEW ") {
		t.Errorf("submitted = %q, want plain CREATE VIEW", backend.submitted[0])
	}
}

func TestCreateOrReplaceView_GuardRejects(t *testing.T) {
	t.Parallel()

	w := NewWriter(&fakeBackend{}, nil)
	tests := []string{
		"SELECT 1; DROP TABLE x",
		"UPDATE t SET x=1",
		"",
	}
	for _, sql := range tests {
		_, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
			Path:     []string{"s", "v"},
			Select:   sql,
			Strategy: StrategyStatement,
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Select=%q: err = %v, want ErrValidation", sql, err)
		}
	}
}

func TestCreateOrReplaceView_EmptyPath(t *testing.T) {
	t.Parallel()

	w := NewWriter(&fakeBackend{}, nil)
	_, err := w.CreateOrReplaceView(context.Background(), WriteRequest{Select: "select 1"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCreateOrReplaceView_EntityCreate(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		createRes: RawEntry{"id": "new-id", "tag": "t0", "type": "VIRTUAL_DATASET", "path": []any{"Space", "v"}},
	}
	w := NewWriter(backend, nil)

	res, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
		Path:      []string{"Space", "v"},
		Select:    "select 1",
		Strategy:  StrategyEntity,
		OrReplace: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "new-id" || res.Tag != "t0" {
		t.Errorf("result = %+v", res)
	}
	if len(backend.creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(backend.creates))
	}
	if backend.creates[0]["sql"] != "select 1" {
		t.Errorf("create body sql = %v", backend.creates[0]["sql"])
	}
}

// entityConflictBackend simulates a backend where the view already exists:
// create always conflicts and the entity is discoverable under its root.
func entityConflictBackend() *fakeBackend {
	return &fakeBackend{
		createErr: errors.New("409 conflict"),
		roots:     []RawEntry{container("sp", "SPACE", "Space")},
		children: map[string][]RawEntry{
			"sp": {viewEntry("existing-id", "Space", "v")},
		},
		entities: map[string]RawEntry{
			"existing-id": {"id": "existing-id", "tag": "etag-3", "type": "VIRTUAL_DATASET", "path": []any{"Space", "v"}},
		},
		updateRes: RawEntry{"id": "existing-id", "tag": "etag-4", "type": "VIRTUAL_DATASET", "path": []any{"Space", "v"}},
	}
}

// TestCreateOrReplaceView_EntityRecovery: a failed create with or_replace
// recovers by locating the existing entity and updating it with its tag.
func TestCreateOrReplaceView_EntityRecovery(t *testing.T) {
	t.Parallel()

	backend := entityConflictBackend()
	w := NewWriter(backend, nil)

	res, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
		Path:      []string{"Space", "v"},
		Select:    "select 1",
		Strategy:  StrategyEntity,
		OrReplace: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "existing-id" {
		t.Errorf("ID = %q, want existing-id", res.ID)
	}
	if len(backend.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(backend.updates))
	}
	if backend.updateTags[0] != "etag-3" {
		t.Errorf("update tag = %q, want etag-3", backend.updateTags[0])
	}
	if backend.updates[0]["id"] != "existing-id" {
		t.Errorf("update body id = %v", backend.updates[0]["id"])
	}
}

// TestCreateOrReplaceView_EntityIdempotent: calling twice with or_replace
// must not fail; the second call takes the recovery-and-update path.
func TestCreateOrReplaceView_EntityIdempotent(t *testing.T) {
	t.Parallel()

	backend := entityConflictBackend()
	w := NewWriter(backend, nil)

	req := WriteRequest{
		Path:      []string{"Space", "v"},
		Select:    "select 1",
		Strategy:  StrategyEntity,
		OrReplace: true,
	}
	for i := 0; i < 2; i++ {
		if _, err := w.CreateOrReplaceView(context.Background(), req); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}
	if len(backend.updates) != 2 {
		t.Errorf("updates = %d, want 2", len(backend.updates))
	}
}

func TestCreateOrReplaceView_EntityNoReplacePropagates(t *testing.T) {
	t.Parallel()

	backend := entityConflictBackend()
	w := NewWriter(backend, nil)

	_, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
		Path:     []string{"Space", "v"},
		Select:   "select 1",
		Strategy: StrategyEntity,
	})
	if err == nil || !strings.Contains(err.Error(), "409") {
		t.Fatalf("err = %v, want the create failure propagated", err)
	}
	if len(backend.updates) != 0 {
		t.Errorf("no update expected without or_replace")
	}
}

// TestCreateOrReplaceView_Inconsistent: the backend claims the entity exists
// (create fails) but nothing matches its path; this must surface as an
// unrecoverable inconsistency, never a silent duplicate.
func TestCreateOrReplaceView_Inconsistent(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		createErr: errors.New("409 conflict"),
		roots:     []RawEntry{container("sp", "SPACE", "Space")},
		children:  map[string][]RawEntry{"sp": {}},
	}
	w := NewWriter(backend, nil)

	_, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
		Path:      []string{"Space", "ghost"},
		Select:    "select 1",
		Strategy:  StrategyEntity,
		OrReplace: true,
	})
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("err = %v, want ErrInconsistent", err)
	}
}

// TestCreateOrReplaceView_RootListingFastPath: a path matching a root entry
// directly must not trigger the exhaustive children scan.
func TestCreateOrReplaceView_RootListingFastPath(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		createErr: errors.New("409"),
		roots: []RawEntry{
			RawEntry{"id": "root-v", "type": "VIRTUAL_DATASET", "path": []any{"TopView"}, "name": "TopView"},
		},
		entities: map[string]RawEntry{
			"root-v": {"id": "root-v", "tag": "t1", "path": []any{"TopView"}},
		},
		updateRes: RawEntry{"id": "root-v", "tag": "t2", "path": []any{"TopView"}},
		childrenErr: map[string]error{
			"root-v": errors.New("children scan must not run"),
		},
	}
	w := NewWriter(backend, nil)

	res, err := w.CreateOrReplaceView(context.Background(), WriteRequest{
		Path:      []string{"TopView"},
		Select:    "select 1",
		Strategy:  StrategyEntity,
		OrReplace: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "root-v" {
		t.Errorf("ID = %q", res.ID)
	}
}

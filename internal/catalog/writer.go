package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Strategy selects how a view is created.
type Strategy string

// Strategy constants for view creation.
const (
	// StrategyStatement submits a CREATE [OR REPLACE] VIEW statement and
	// returns the resulting job id.
	StrategyStatement Strategy = "sql"

	// StrategyEntity creates the view through the catalog entity API, with
	// an optimistic-create-then-lookup-then-update fallback on conflict.
	StrategyEntity Strategy = "catalog"
)

// WriteRequest describes one view create-or-replace operation.
type WriteRequest struct {
	// Path is the fully qualified view path, root to leaf.
	Path []string

	// Select is the SELECT statement defining the view. Trailing
	// semicolons are stripped before composition.
	Select string

	Strategy  Strategy
	OrReplace bool

	// SQLContext sets the execution-context segments for the entity
	// strategy. Ignored by the statement strategy.
	SQLContext []string

	// SkipGuard disables the single-SELECT safety check. The guard is on
	// by default; disabling it is an explicit caller decision.
	SkipGuard bool
}

// WriteResult reports the outcome of a view write. The statement strategy
// fills JobID; the entity strategy fills ID, Tag and Type.
type WriteResult struct {
	ID         string   `json:"id,omitempty"`
	JobID      string   `json:"jobId,omitempty"`
	Path       []string `json:"path"`
	PathString string   `json:"path_str"`
	Tag        string   `json:"tag,omitempty"`
	Type       string   `json:"type,omitempty"`
	Method     Strategy `json:"method"`
}

// Writer creates or idempotently replaces virtual datasets.
type Writer struct {
	backend Backend
	logger  *slog.Logger
}

// NewWriter creates a Writer over the given backend.
func NewWriter(backend Backend, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{backend: backend, logger: logger}
}

// CreateOrReplaceView creates the view at req.Path defined by req.Select.
// Unless req.SkipGuard is set, the SELECT body must pass CheckSelect before
// any network call.
func (w *Writer) CreateOrReplaceView(ctx context.Context, req WriteRequest) (WriteResult, error) {
	result := WriteResult{
		Path:       req.Path,
		PathString: JoinPath(req.Path),
		Method:     req.Strategy,
	}

	if len(req.Path) == 0 {
		return result, fmt.Errorf("%w: view path must not be empty", ErrValidation)
	}

	sel := stripTrailing(req.Select)
	if !req.SkipGuard {
		if err := CheckSelect(sel); err != nil {
			return result, err
		}
	}
	if sel == "" {
		return result, fmt.Errorf("%w: empty view definition", ErrValidation)
	}

	switch req.Strategy {
	case StrategyEntity:
		return w.writeEntity(ctx, req, sel, result)
	case StrategyStatement, "":
		return w.writeStatement(ctx, req, sel, result)
	default:
		return result, fmt.Errorf("%w: unknown strategy %q", ErrValidation, req.Strategy)
	}
}

// writeStatement composes and submits a CREATE [OR REPLACE] VIEW statement.
func (w *Writer) writeStatement(ctx context.Context, req WriteRequest, sel string, result WriteResult) (WriteResult, error) {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if req.OrReplace {
		sb.WriteString("OR REPLACE ")
	}
	sb.WriteString("VIEW ")
	sb.WriteString(QuoteIdentifier(req.Path))
	sb.WriteString(" AS ")
	sb.WriteString(sel)

	result.Method = StrategyStatement
	jobID, err := w.backend.SubmitSQL(ctx, sb.String(), nil)
	if err != nil {
		return result, fmt.Errorf("submitting view statement for %s: %w", result.PathString, err)
	}
	result.JobID = jobID

	w.logger.Info("view statement submitted", "path", result.PathString, "job_id", jobID)
	return result, nil
}

// writeEntity creates the view through the catalog entity API. When creation
// fails and OrReplace is set, the existing entity is located by path, its
// concurrency tag fetched, and an update issued in its place.
func (w *Writer) writeEntity(ctx context.Context, req WriteRequest, sel string, result WriteResult) (WriteResult, error) {
	body := RawEntry{
		"entityType": "dataset",
		"type":       virtualDataset,
		"path":       req.Path,
		"sql":        sel,
	}
	if len(req.SQLContext) > 0 {
		body["sqlContext"] = req.SQLContext
	}

	created, err := w.backend.CreateEntity(ctx, body)
	if err == nil {
		fillEntityResult(&result, created)
		w.logger.Info("view created", "path", result.PathString, "id", result.ID)
		return result, nil
	}

	if !req.OrReplace {
		return result, fmt.Errorf("creating view %s: %w", result.PathString, err)
	}

	// The create failed with or_replace requested: assume the entity already
	// exists and replace it in place.
	id, findErr := w.findByPath(ctx, req.Path)
	if findErr != nil {
		return result, fmt.Errorf("recovery scan for %s after failed create (%v): %w",
			result.PathString, err, findErr)
	}
	if id == "" {
		return result, fmt.Errorf("%w: create of %s failed (%v) but no entity matches its path",
			ErrInconsistent, result.PathString, err)
	}

	existing, entErr := w.backend.Entity(ctx, id)
	if entErr != nil {
		return result, fmt.Errorf("fetching existing view %s for replace: %w", result.PathString, entErr)
	}

	body["id"] = id
	if tag := existing.str("tag"); tag != "" {
		body["tag"] = tag
	}

	updated, updErr := w.backend.UpdateEntity(ctx, id, existing.str("tag"), body)
	if updErr != nil {
		return result, fmt.Errorf("replacing view %s: %w", result.PathString, updErr)
	}

	fillEntityResult(&result, updated)
	if result.ID == "" {
		result.ID = id
	}
	w.logger.Info("view replaced", "path", result.PathString, "id", result.ID)
	return result, nil
}

// findByPath resolves an entity id by path. The top-level listing is checked
// first; only when no root matches is an exhaustive root-by-root walk
// performed. The walk can be expensive on large catalogs; a dedicated
// lookup-by-path endpoint would replace it if the backend grew one.
func (w *Writer) findByPath(ctx context.Context, path []string) (string, error) {
	roots, err := w.backend.Roots(ctx)
	if err != nil {
		return "", err
	}

	rootNodes := make([]Node, 0, len(roots))
	for _, raw := range roots {
		node := ParseNode(raw)
		if pathsEqual(node.Path, path) {
			return node.ID, nil
		}
		rootNodes = append(rootNodes, node)
	}

	for _, root := range rootNodes {
		walker := NewWalker(w.backend, w.logger)
		for node := range walker.Nodes(ctx, []Node{root}) {
			if pathsEqual(node.Path, path) {
				return node.ID, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	return "", nil
}

// pathsEqual compares catalog paths segment-by-segment, case-insensitively.
func pathsEqual(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func fillEntityResult(result *WriteResult, ent RawEntry) {
	if ent == nil {
		return
	}
	result.ID = ent.str("id")
	result.Tag = ent.str("tag")
	result.Type = ent.str("type")
	if path := normalizePath(ent); len(path) > 0 {
		result.Path = path
		result.PathString = JoinPath(path)
	}
}

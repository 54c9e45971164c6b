package catalog

import (
	"context"
	"log/slog"
	"strings"
)

// Resolver discovers virtual datasets under selected catalog roots.
type Resolver struct {
	backend Backend
	logger  *slog.Logger
}

// NewResolver creates a Resolver over the given backend.
func NewResolver(backend Backend, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{backend: backend, logger: logger}
}

// ListOptions controls a ListViews call.
type ListOptions struct {
	// Roots restricts discovery to top-level roots whose name matches one
	// of the entries, case-insensitively. Empty means every visible root.
	Roots []string

	// HydrateSQL issues one extra entity fetch for records that lack SQL
	// text, merging in the SQL (and the path, when missing) from the full
	// entity. Hydration failures are non-fatal.
	HydrateSQL bool
}

// ListViews walks the selected roots breadth-first and returns every virtual
// dataset found, in traversal order (roots in listing order, breadth-first
// within each root).
//
// Discovery order is stable within one call but follows the backend's own
// listing order, which is not guaranteed stable across calls; callers that
// compare repeated results should treat the output as a set.
func (r *Resolver) ListViews(ctx context.Context, opts ListOptions) ([]ViewRecord, error) {
	roots, err := r.backend.Roots(ctx)
	if err != nil {
		return nil, err
	}

	filter := make(map[string]bool, len(opts.Roots))
	for _, name := range opts.Roots {
		filter[strings.ToLower(name)] = true
	}

	var out []ViewRecord
	for _, raw := range roots {
		node := ParseNode(raw)
		if len(filter) > 0 && !filter[strings.ToLower(node.Name)] {
			continue
		}

		walker := NewWalker(r.backend, r.logger)
		for n := range walker.Nodes(ctx, []Node{node}) {
			rec, ok := ClassifyView(n.Raw)
			if !ok {
				continue
			}
			if opts.HydrateSQL && rec.SQL == "" {
				r.hydrate(ctx, &rec)
			}
			out = append(out, rec)
		}

		if skipped := walker.Skipped(); len(skipped) > 0 {
			r.logger.Warn("traversal finished with skipped subtrees",
				"root", node.Name,
				"skipped", len(skipped),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// hydrate merges SQL text and, when missing, the path from the record's full
// entity. A failed fetch leaves the record as-is with no SQL.
func (r *Resolver) hydrate(ctx context.Context, rec *ViewRecord) {
	if rec.ID == "" {
		return
	}

	ent, err := r.backend.Entity(ctx, rec.ID)
	if err != nil {
		r.logger.Warn("sql hydration failed", "id", rec.ID, "error", err)
		return
	}

	if sql := extractSQL(ent); sql != "" {
		rec.SQL = sql
	}
	if len(rec.Path) == 0 {
		if path := normalizePath(ent); len(path) > 0 {
			rec.Path = path
			rec.PathString = JoinPath(path)
		}
	}
}

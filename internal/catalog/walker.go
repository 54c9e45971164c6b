package catalog

import (
	"context"
	"iter"
	"log/slog"
	"slices"
)

// Skip records one subtree whose children could not be fetched during a
// traversal. Skips are collected rather than raised so a failing branch
// never aborts the rest of the walk.
type Skip struct {
	ID   string
	Name string
	Err  error
}

// Walker performs a breadth-first traversal of the catalog tree. A Walker is
// single-use: Nodes may be ranged over once, and a fresh traversal requires a
// fresh Walker.
type Walker struct {
	backend Backend
	logger  *slog.Logger
	skipped []Skip
}

// NewWalker creates a Walker over the given backend.
func NewWalker(backend Backend, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{backend: backend, logger: logger}
}

// Nodes returns a lazy breadth-first sequence over the subtrees rooted at the
// given nodes. Each dequeued node is yielded before its children are fetched;
// children are requested only for container kinds. The sequence ends when the
// frontier is empty or the context is canceled.
func (w *Walker) Nodes(ctx context.Context, roots []Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		queue := slices.Clone(roots)
		for len(queue) > 0 {
			if ctx.Err() != nil {
				return
			}

			node := queue[0]
			queue = queue[1:]

			if !yield(node) {
				return
			}

			if !node.Kind.Container() || node.ID == "" {
				continue
			}

			kids, err := w.children(ctx, node.ID)
			if err != nil {
				w.skipped = append(w.skipped, Skip{ID: node.ID, Name: node.Name, Err: err})
				w.logger.Warn("skipping subtree, children fetch failed",
					"id", node.ID,
					"name", node.Name,
					"error", err,
				)
				continue
			}

			for _, raw := range kids {
				queue = append(queue, ParseNode(raw))
			}
		}
	}
}

// Skipped returns the subtrees skipped so far during the traversal.
func (w *Walker) Skipped() []Skip {
	return w.skipped
}

// children fetches a node's children, falling back to the inline children of
// the full entity when the dedicated children endpoint is unavailable. An
// absent or empty inline list means "no children", not an error.
func (w *Walker) children(ctx context.Context, id string) ([]RawEntry, error) {
	kids, err := w.backend.Children(ctx, id)
	if err == nil {
		return kids, nil
	}

	ent, entErr := w.backend.Entity(ctx, id)
	if entErr != nil {
		return nil, err
	}
	return ent.InlineChildren(), nil
}

// Package catalog implements discovery and management of virtual datasets
// (views) in a remote hierarchical data catalog: breadth-first traversal,
// shape normalization of loosely-typed catalog payloads, view resolution,
// create-or-replace view writing, and asynchronous query job tracking.
//
// All network access goes through the Backend interface; concrete
// implementations live in separate packages (e.g. backend.dremio).
package catalog

import (
	"context"
	"strings"
)

// Kind classifies a catalog entry.
type Kind string

// Kind constants for catalog entries.
const (
	KindSpace     Kind = "SPACE"
	KindFolder    Kind = "FOLDER"
	KindContainer Kind = "CONTAINER"
	KindSource    Kind = "SOURCE"
	KindDataset   Kind = "DATASET"
	KindHome      Kind = "HOME"
	KindUnknown   Kind = ""
)

// Container reports whether entries of this kind can have children.
func (k Kind) Container() bool {
	switch k {
	case KindSource, KindSpace, KindHome, KindContainer, KindFolder:
		return true
	default:
		return false
	}
}

// RawEntry is one catalog payload as returned by the backend. Field names
// and casing vary by endpoint; ParseNode and ClassifyView are the only code
// that should probe it directly.
type RawEntry map[string]any

// Node is a normalized catalog entry produced during one traversal.
// Nodes are immutable once constructed and carry no identity beyond
// the traversal that yielded them.
type Node struct {
	ID          string
	Kind        Kind
	DatasetType string
	Name        string
	Path        []string

	// Raw is the payload the node was parsed from, kept so callers can
	// run further shape classification (ClassifyView) without a re-fetch.
	Raw RawEntry
}

// ViewRecord is a normalized virtual dataset.
//
// PathString is always derived from Path via JoinPath when Path is
// non-empty; it is never mutated independently.
type ViewRecord struct {
	ID         string   `json:"id"`
	Path       []string `json:"path"`
	PathString string   `json:"path_str"`
	Type       string   `json:"type"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	ModifiedAt string   `json:"modifiedAt,omitempty"`
	SQL        string   `json:"sql,omitempty"`
}

// JoinPath renders a catalog path as a dot-joined string.
func JoinPath(path []string) string {
	return strings.Join(path, ".")
}

// JobState is the backend-reported state of a query job.
type JobState string

// JobState constants. The backend reports finer-grained running sub-states
// (PLANNING, QUEUED, ...); only the three terminal states matter to callers.
const (
	JobStatePending   JobState = "PENDING"
	JobStateRunning   JobState = "RUNNING"
	JobStateCompleted JobState = "COMPLETED"
	JobStateCanceled  JobState = "CANCELED"
	JobStateFailed    JobState = "FAILED"
)

// Terminal reports whether the job has finished.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateCanceled, JobStateFailed:
		return true
	default:
		return false
	}
}

// Job is one submitted query execution, tracked by backend-assigned id.
// It is mutated only by the remote backend and polled via Backend.Job.
type Job struct {
	ID           string   `json:"id"`
	State        JobState `json:"jobState"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	RowCount     int64    `json:"rowCount,omitempty"`
}

// Column describes one column of a job result set.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ResultPage is one page of job results. Rows are passed through exactly as
// the backend provides them; no type coercion happens at this layer.
type ResultPage struct {
	RowCount int              `json:"rowCount"`
	Columns  []Column         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
}

// Backend is the remote catalog and SQL execution API consumed by this
// package. Implementations must be safe for concurrent use.
type Backend interface {
	// Roots returns the top-level catalog listing.
	Roots(ctx context.Context) ([]RawEntry, error)

	// Entity fetches the full catalog entity by id.
	Entity(ctx context.Context, id string) (RawEntry, error)

	// Children fetches the children of a container entity. The dedicated
	// children endpoint may be unavailable for some entities; callers fall
	// back to the inline children of Entity in that case.
	Children(ctx context.Context, id string) ([]RawEntry, error)

	// SubmitSQL submits one SQL statement for execution and returns the
	// backend-assigned job id.
	SubmitSQL(ctx context.Context, sql string, sqlContext []string) (string, error)

	// Job fetches the current state of a job.
	Job(ctx context.Context, id string) (Job, error)

	// JobResults fetches one page of results for a completed job.
	JobResults(ctx context.Context, id string, offset, limit int) (ResultPage, error)

	// CreateEntity creates a catalog entity and returns the created payload.
	CreateEntity(ctx context.Context, body RawEntry) (RawEntry, error)

	// UpdateEntity replaces a catalog entity by id. tag is the entity's
	// optimistic-concurrency marker; empty when the backend does not use one.
	UpdateEntity(ctx context.Context, id, tag string, body RawEntry) (RawEntry, error)
}

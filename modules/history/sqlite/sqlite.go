// Package sqlite implements the history.sqlite module: a persistent
// SQLite-backed store of question/answer exchanges. It uses
// modernc.org/sqlite (pure Go, no CGO) with WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ui-iids/dremio-mcp-client/internal/core"
	"github.com/ui-iids/dremio-mcp-client/internal/history"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ history.Store     = (*store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module implements the SQLite-backed exchange history.
type Module struct {
	config Config
	db     *sql.DB
	logger *slog.Logger
	store  *store
}

// store implements history.Store backed by SQLite.
type store struct {
	db *sql.DB
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "history.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := open(m.config)
	if err != nil {
		return err
	}

	m.db = db
	m.store = &store{db: db}

	ctx.RegisterService("history.store", m.store)

	m.logger.Info("history store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// open opens the database file, applies PRAGMAs, and migrates the schema.
func open(cfg Config) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(context.TODO(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(context.TODO(), fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Store returns the history.Store implementation.
func (m *Module) Store() history.Store {
	return m.store
}

// Append implements history.Store.
func (s *store) Append(ctx context.Context, rec history.Record) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (question, answer, trace, model, turns) VALUES (?, ?, ?, ?, ?)`,
		rec.Question, rec.Answer, rec.Trace, rec.Model, rec.Turns,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: append exchange: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: read insert id: %w", err)
	}
	return id, nil
}

// Recent implements history.Store.
func (s *store) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, trace, model, turns, created_at
		 FROM exchanges ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list exchanges: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var records []history.Record
	for rows.Next() {
		var rec history.Record
		var created string
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &rec.Trace, &rec.Model, &rec.Turns, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan exchange: %w", err)
		}
		rec.CreatedAt = parseTimestamp(created)
		records = append(records, rec)
	}
	return records, rows.Err()
}

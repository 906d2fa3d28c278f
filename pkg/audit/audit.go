// Package audit keeps a diagnostic trail of lifecycle transitions in a
// local sqlite database. It is never consulted for correctness — the
// filesystem config store is the sole source of truth — only for
// after-the-fact inspection of what happened to a peering and when.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"autopeer/pkg/model"
)

// Log writes and reads audit entries against a sqlite file.
type Log struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: mkdir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS audit_log(
		actor TEXT, action TEXT, target TEXT, detail TEXT, ts INTEGER
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: schema: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Append records one audit entry. Failures are the caller's to decide how
// to handle; audit writes never block or fail a lifecycle transition that
// already committed to the config store.
func (l *Log) Append(ctx context.Context, entry model.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_log(actor, action, target, detail, ts) VALUES(?,?,?,?,?)`,
		entry.Actor, entry.Action, entry.Target, entry.Detail, entry.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT actor, action, target, detail, ts FROM audit_log ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var ts int64
		if err := rows.Scan(&e.Actor, &e.Action, &e.Target, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// ForASN returns up to limit entries whose target is the given interface
// name, most recent first.
func (l *Log) ForASN(ctx context.Context, iface string, limit int) ([]model.AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT actor, action, target, detail, ts FROM audit_log WHERE target = ? ORDER BY ts DESC LIMIT ?`, iface, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var ts int64
		if err := rows.Scan(&e.Actor, &e.Action, &e.Target, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

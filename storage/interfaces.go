package storage

import (
	"context"

	"github.com/poiesic/convergence/core"
)

// SnapshotRepository persists taxonomy snapshots keyed by their cache key.
// Implementations must be thread-safe and support concurrent access.
type SnapshotRepository interface {
	// LoadSnapshot returns the current snapshot stored under key.
	// Returns nil, nil when nothing is stored.
	// Returns ErrCorruptSnapshot when stored bytes cannot be decoded.
	LoadSnapshot(ctx context.Context, key string) (*core.Snapshot, error)

	// SaveSnapshot stores snapshot under snapshot.Key.
	// A reader sees either the previous snapshot or the new one, never a mix.
	SaveSnapshot(ctx context.Context, snapshot *core.Snapshot) error

	// Close releases resources held by the repository.
	Close() error
}

// AuditRepository stores one record per batch run. The engine only appends;
// listing exists for operators.
type AuditRepository interface {
	// AppendAudit stores a record. Records are never updated.
	AppendAudit(ctx context.Context, record *core.AuditRecord) error

	// ListAudits returns up to limit records, newest first.
	// A limit of zero or less returns all records.
	ListAudits(ctx context.Context, limit int) ([]*core.AuditRecord, error)

	// Close releases resources held by the repository.
	Close() error
}

package badger

import (
	"context"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/storage"
)

// AuditRepository implements storage.AuditRepository for BadgerDB.
type AuditRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new audit repository.
//
// Returns storage.AuditRepository interface to enforce abstraction.
func NewAuditRepository(backend *Backend) (storage.AuditRepository, error) {
	return &AuditRepository{
		backend: backend,
		logger:  backend.logger.With("repository", "audit"),
	}, nil
}

// Close releases resources. AuditRepository has no resources to release.
func (r *AuditRepository) Close() error {
	return nil
}

// AppendAudit stores record under its start time and run id.
func (r *AuditRepository) AppendAudit(ctx context.Context, record *core.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := storage.MarshalAudit(record)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeAuditKey(record.StartedAt, record.RunID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListAudits returns up to limit records, newest first.
func (r *AuditRepository) ListAudits(ctx context.Context, limit int) ([]*core.AuditRecord, error) {
	var records []*core.AuditRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(auditPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration starts from the last key with the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.AuditRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalAudit(val)
				return err
			})
			if err != nil {
				return err
			}
			records = append(records, record)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return records, nil
}

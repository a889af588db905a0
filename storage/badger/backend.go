package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/convergence/storage"
)

// ErrNotDirectory is returned when the storage path exists but is a file.
var ErrNotDirectory = errors.New("storage path is not a directory")

// sequenceLease is how many ids a sequence reserves per disk write.
// Snapshot generations are rare, so a small lease wastes little on restart.
const sequenceLease = 16

// Backend owns the badger database shared by the snapshot and audit
// repositories.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes badger's printf-style logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) Errorf(format string, args ...any)   { a.log(slog.LevelError, format, args) }
func (a *slogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args) }
func (a *slogAdapter) Infof(format string, args ...any)    { a.log(slog.LevelInfo, format, args) }
func (a *slogAdapter) Debugf(format string, args ...any)   { a.log(slog.LevelDebug, format, args) }

func (a *slogAdapter) log(level slog.Level, format string, args []any) {
	a.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// OpenBackend opens the engine's store at dir, creating the directory when
// needed. With inMemory set dir is ignored and nothing touches disk.
// On-disk stores sync every commit so a snapshot swap survives a crash.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := prepareDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &slogAdapter{logger: logger}
	// Values are already compact MUS or JSON records.
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &Backend{db: db, logger: logger}, nil
}

func prepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn in a fresh transaction, read-write when isWrite is set.
// fn commits; whatever it leaves uncommitted is discarded.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// GetSequence returns a monotonic counter stored under name. The caller
// releases it.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	if b.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return b.db.GetSequence([]byte(name), sequenceLease)
}

package badger

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/kgeesawor/discord-intel/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db       *badger.DB
	readOnly bool
	logger   *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// manifestFile is the file badger keeps in every database directory.
const manifestFile = "MANIFEST"

// OpenBackend opens a BadgerDB database in the directory at path, creating
// it when missing. An empty path opens an in-memory database. Badger's own
// log lines go to logger.
func OpenBackend(path string, logger *slog.Logger) (*Backend, error) {
	logger = backendLogger(logger)

	opts := badger.DefaultOptions("").WithInMemory(true)
	if path != "" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(path)
	}
	return openBackend(opts, path, logger)
}

// OpenBackendReadOnly opens an existing BadgerDB directory without writing
// to it. A path that holds no badger database is reported as
// storage.ErrCollectionNotFound and is left untouched.
func OpenBackendReadOnly(path string, logger *slog.Logger) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: read-only index needs a path", storage.ErrInvalidLocation)
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no index at %s", storage.ErrCollectionNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", storage.ErrInvalidLocation, path)
	}
	if _, err := os.Stat(filepath.Join(path, manifestFile)); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no index at %s", storage.ErrCollectionNotFound, path)
	}

	opts := badger.DefaultOptions(path).WithReadOnly(true)
	return openBackend(opts, path, backendLogger(logger))
}

func backendLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "badger")
}

func openBackend(opts badger.Options, path string, logger *slog.Logger) (*Backend, error) {
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", path, err)
	}

	return &Backend{
		db:       db,
		readOnly: opts.ReadOnly,
		logger:   logger,
	}, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(path, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", storage.ErrInvalidLocation, path)
	}
	return nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// ReadOnly reports whether the database was opened read-only.
func (b *Backend) ReadOnly() bool {
	return b.readOnly
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// DropPrefix deletes every key starting with prefix.
func (b *Backend) DropPrefix(prefix []byte) error {
	return b.db.DropPrefix(prefix)
}

// WriteAll writes key/value pairs with a write batch, which is not bound
// by the size limit of a single transaction.
func (b *Backend) WriteAll(n int, kv func(i int) (key, value []byte)) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for i := 0; i < n; i++ {
		k, v := kv(i)
		if err := wb.Set(k, v); err != nil {
			return err
		}
	}
	return wb.Flush()
}

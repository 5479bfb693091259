// Package badger provides a directory.Directory stored in a Badger
// key-value database, one key per file.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/index"
)

const (
	filePrefix = "f/"
	commitKey  = "c/current"
)

// loggerAdapter adapts slog.Logger to the badger.Logger interface.
type loggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(strings.TrimSpace(msg), items...))
}

func (l *loggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(strings.TrimSpace(msg), items...))
}

func (l *loggerAdapter) Infof(msg string, items ...any) {
	l.logger.Info(fmt.Sprintf(strings.TrimSpace(msg), items...))
}

func (l *loggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(strings.TrimSpace(msg), items...))
}

type dirOptions struct {
	inMemory bool
	logger   *slog.Logger
	syncs    bool
}

// Option configures Open.
type Option func(*dirOptions)

// WithInMemory keeps the database in memory; path is ignored.
func WithInMemory() Option {
	return func(o *dirOptions) {
		o.inMemory = true
	}
}

// WithLogger routes Badger's own logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *dirOptions) {
		o.logger = l
	}
}

// WithSyncWrites makes every Put durable before it returns.
func WithSyncWrites(enabled bool) Option {
	return func(o *dirOptions) {
		o.syncs = enabled
	}
}

// Directory stores index files in a Badger database it owns.
type Directory struct {
	db *badger.DB
}

// Open opens or creates the database at path.
func Open(path string, optFns ...Option) (*Directory, error) {
	o := dirOptions{logger: slog.New(slog.DiscardHandler), syncs: true}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	var opts badger.Options
	if o.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path).WithSyncWrites(o.syncs)
	}
	opts.Logger = &loggerAdapter{logger: o.logger}
	// Segments compress their own stored fields.
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", path, err)
	}
	return &Directory{db: db}, nil
}

func (d *Directory) check() error {
	if d.db.IsClosed() {
		return directory.ErrClosed
	}
	return nil
}

// Open reads a whole file into memory.
func (d *Directory) Open(_ context.Context, name string) (directory.Input, error) {
	if err := d.check(); err != nil {
		return nil, err
	}

	var data []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(filePrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("badger: read %s: %w", name, err)
	}
	return directory.NewBytesInput(data), nil
}

// Put writes a whole file in one transaction.
func (d *Directory) Put(_ context.Context, name string, data []byte) error {
	if err := d.check(); err != nil {
		return err
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(filePrefix+name), data)
	})
	if err != nil {
		return fmt.Errorf("badger: write %s: %w", name, err)
	}
	return nil
}

// Delete removes a file. Deleting a missing file is not an error.
func (d *Directory) Delete(_ context.Context, name string) error {
	if err := d.check(); err != nil {
		return err
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(filePrefix + name))
	})
	if err != nil {
		return fmt.Errorf("badger: delete %s: %w", name, err)
	}
	return nil
}

// List returns the file names starting with prefix, sorted.
func (d *Directory) List(_ context.Context, prefix string) ([]string, error) {
	if err := d.check(); err != nil {
		return nil, err
	}

	var names []string
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(filePrefix + prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), filePrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: list %s: %w", prefix, err)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the database.
func (d *Directory) Close() error {
	if d.db.IsClosed() {
		return nil
	}
	return d.db.Close()
}

// CommitPointer returns a pointer kept in the same database. Swaps run in
// serializable transactions, so concurrent committers conflict instead of
// overwriting each other.
func (d *Directory) CommitPointer() index.CommitPointer {
	return &commitPointer{db: d.db}
}

type commitPointer struct {
	db *badger.DB
}

func (p *commitPointer) Load(_ context.Context) (string, error) {
	var current string
	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		current, err = readCurrent(txn)
		return err
	})
	return current, err
}

func (p *commitPointer) Swap(_ context.Context, old, next string) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		current, err := readCurrent(txn)
		if err != nil {
			return err
		}
		if current != old {
			return fmt.Errorf("%w: expected %q, found %q", index.ErrConcurrentCommit, old, current)
		}
		return txn.Set([]byte(commitKey), []byte(next))
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %w", index.ErrConcurrentCommit, err)
	}
	return err
}

func readCurrent(txn *badger.Txn) (string, error) {
	item, err := txn.Get([]byte(commitKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	v, err := item.ValueCopy(nil)
	return string(v), err
}

var _ directory.Directory = (*Directory)(nil)

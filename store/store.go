// Package store keeps encoded trails in an embedded BadgerDB, one key per
// server identity.
package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const trailPrefix = "trail/"

// ErrNotFound is returned by Get when no trail is stored under a key.
var ErrNotFound = errors.New("store: trail not found")

// Config holds configuration for the trail store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *zap.Logger
}

// DefaultConfig returns a durable on-disk configuration at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts zap to BadgerDB's Logger interface.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.sugar.Debugf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(strings.TrimSpace(format), args...)
}

// Store persists trail blobs.
type Store struct {
	db *badger.DB
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{sugar: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the blob stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(trailPrefix + key))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trail %s: %w", key, err)
	}
	return blob, nil
}

// Load returns the blob stored under key, or nil when there is none.
func (s *Store) Load(key string) ([]byte, error) {
	blob, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return blob, err
}

// Save stores blob under key, replacing any previous value.
func (s *Store) Save(key string, blob []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(trailPrefix+key), blob)
	})
	if err != nil {
		return fmt.Errorf("save trail %s: %w", key, err)
	}
	return nil
}

// Delete removes the trail stored under key.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(trailPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("delete trail %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored trail key.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(trailPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), trailPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list trails: %w", err)
	}
	return keys, nil
}

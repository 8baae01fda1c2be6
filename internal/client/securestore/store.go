// Package securestore is the private on-device key-value store: a badger
// database in an owner-only directory, encrypted at rest when a key is set.
package securestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// Key is a 16, 24 or 32 byte AES key; nil disables encryption.
	Key      []byte
	InMemory bool
}

type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	log logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func Open(opts Options, log logging.Logger) (*Store, error) {
	var bo badger.Options
	if opts.InMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("securestore: path is required")
		}
		dir, err := filex.EnsurePrivateDir(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("securestore: %w", err)
		}
		bo = badger.DefaultOptions(dir)
	}

	bo = bo.WithSyncWrites(true).WithNumVersionsToKeep(1)
	if len(opts.Key) > 0 {
		bo = bo.WithEncryptionKey(opts.Key).WithIndexCacheSize(8 << 20)
	}
	if log != nil {
		bo = bo.WithLogger(&badgerLogger{log: log.With("component", "securestore")})
	} else {
		bo = bo.WithLogger(nil)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open secure store: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value of key and whether it was present.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("secure store get %s: %w", key, err)
	}
	return out, true, nil
}

func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("secure store set %s: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("secure store delete %s: %w", key, err)
	}
	return nil
}

// GetBool reads a flag stored by SetBool. Missing or unparsable values
// are false.
func (s *Store) GetBool(key string) (bool, error) {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	b, err := strconv.ParseBool(string(v))
	if err != nil {
		return false, nil
	}
	return b, nil
}

func (s *Store) SetBool(key string, v bool) error {
	return s.Set(key, []byte(strconv.FormatBool(v)))
}

func (s *Store) Close() error {
	return s.db.Close()
}

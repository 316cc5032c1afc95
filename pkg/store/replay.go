package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const runKeyPrefix = "run/"

// Run is a finished k-shortest-paths run kept for replay.
type Run struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      int32     `json:"source"`
	Destination int32     `json:"destination"`
	K           int       `json:"k"`
	Paths       [][]int32 `json:"paths"`
	Trace       string    `json:"trace"`
}

// ReplayStore keeps runs in badger, keyed by run id.
type ReplayStore struct {
	db  *badger.DB
	log *logrus.Logger
}

// OpenReplayStore opens a store in dir, or in memory when dir is empty.
func OpenReplayStore(dir string, log *logrus.Logger) (*ReplayStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create replay dir %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open replay store: %w", err)
	}
	log.WithFields(logrus.Fields{
		"dir":       dir,
		"in_memory": dir == "",
	}).Info("replay store opened")
	return &ReplayStore{db: db, log: log}, nil
}

// Put stores run, replacing any run with the same id.
func (s *ReplayStore) Put(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runKeyPrefix+run.ID), data)
	})
	if err != nil {
		return fmt.Errorf("put run %s: %w", run.ID, err)
	}
	s.log.WithFields(logrus.Fields{
		"run_id": run.ID,
		"bytes":  len(data),
	}).Debug("run stored")
	return nil
}

// Get returns the run stored under id.
func (s *ReplayStore) Get(ctx context.Context, id string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKeyPrefix + id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// Count returns the number of stored runs.
func (s *ReplayStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (s *ReplayStore) Close() error {
	return s.db.Close()
}

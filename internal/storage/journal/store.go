package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/imamik/tradefleet/internal/provisioning"

	"github.com/dgraph-io/badger/v4"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Config holds the store options.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory. Used by tests and dry runs.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's own messages. Nil disables them.
	Logger *slog.Logger
}

// DefaultPath returns the journal directory: $TRADEFLEET_STATE_DIR/journal,
// else $XDG_STATE_HOME/tradefleet/journal, else ~/.local/state/tradefleet/journal.
func DefaultPath() (string, error) {
	if dir := os.Getenv("TRADEFLEET_STATE_DIR"); dir != "" {
		return filepath.Join(dir, "journal"), nil
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tradefleet", "journal"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "tradefleet", "journal"), nil
}

// Store is a BadgerDB-backed provisioning.Journal. It is safe for
// concurrent use.
type Store struct {
	db *badger.DB
}

var _ provisioning.Journal = (*Store)(nil)

// Open opens or creates a store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("journal path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an empty in-memory store.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin implements provisioning.Journal. A run ID can only be begun once.
func (s *Store) Begin(run provisioning.RunInfo) error {
	if run.ID == "" {
		return errors.New("run has no id")
	}
	if run.Status == "" {
		run.Status = provisioning.RunRunning
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(runKey(run.ID))
		switch {
		case err == nil:
			return fmt.Errorf("run %s already exists", run.ID)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return putJSON(txn, runKey(run.ID), run)
	})
}

// Append implements provisioning.Journal.
func (s *Store) Append(runID string, rec provisioning.ResourceRecord) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := getRun(txn, runID); err != nil {
			return err
		}
		seq, err := nextSeq(txn, runID)
		if err != nil {
			return err
		}
		return putJSON(txn, recordKey(runID, seq), rec)
	})
	if err != nil {
		return fmt.Errorf("failed to append %s to run %s: %w", rec.Key, runID, err)
	}
	return nil
}

// Finish implements provisioning.Journal. A run can be finished more than
// once; the last status wins.
func (s *Store) Finish(runID string, status provisioning.RunStatus) error {
	return s.db.Update(func(txn *badger.Txn) error {
		run, err := getRun(txn, runID)
		if err != nil {
			return err
		}
		run.Status = status
		run.FinishedAt = time.Now().UTC()
		return putJSON(txn, runKey(runID), run)
	})
}

// Run returns one run.
func (s *Store) Run(runID string) (provisioning.RunInfo, error) {
	var run provisioning.RunInfo
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		run, err = getRun(txn, runID)
		return err
	})
	return run, err
}

// Records implements provisioning.Journal.
func (s *Store) Records(runID string) ([]provisioning.ResourceRecord, error) {
	var records []provisioning.ResourceRecord
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getRun(txn, runID); err != nil {
			return err
		}
		return iterate(txn, []byte("rec/"+runID+"/"), func(val []byte) error {
			var rec provisioning.ResourceRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("corrupt record in run %s: %w", runID, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// Runs implements provisioning.Journal. Runs are ordered by start time.
func (s *Store) Runs() ([]provisioning.RunInfo, error) {
	var runs []provisioning.RunInfo
	err := s.db.View(func(txn *badger.Txn) error {
		return iterate(txn, []byte("run/"), func(val []byte) error {
			var run provisioning.RunInfo
			if err := json.Unmarshal(val, &run); err != nil {
				return fmt.Errorf("corrupt run entry: %w", err)
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(runs, func(a, b provisioning.RunInfo) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return runs, nil
}

// LatestRun returns the most recently started run of an environment.
func (s *Store) LatestRun(environment string) (provisioning.RunInfo, error) {
	runs, err := s.Runs()
	if err != nil {
		return provisioning.RunInfo{}, err
	}
	for _, run := range slices.Backward(runs) {
		if run.Environment == environment {
			return run, nil
		}
	}
	return provisioning.RunInfo{}, fmt.Errorf("no runs for environment %s: %w", environment, ErrRunNotFound)
}

func runKey(id string) []byte { return []byte("run/" + id) }
func seqKey(id string) []byte { return []byte("seq/" + id) }

func recordKey(id string, seq uint64) []byte {
	return fmt.Appendf(nil, "rec/%s/%016d", id, seq)
}

func getRun(txn *badger.Txn, id string) (provisioning.RunInfo, error) {
	var run provisioning.RunInfo
	item, err := txn.Get(runKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return run, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return run, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &run)
	})
	return run, err
}

func nextSeq(txn *badger.Txn, id string) (uint64, error) {
	var seq uint64
	item, err := txn.Get(seqKey(id))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence for run %s", id)
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	if err := txn.Set(seqKey(id), binary.BigEndian.AppendUint64(nil, seq+1)); err != nil {
		return 0, err
	}
	return seq, nil
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func iterate(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

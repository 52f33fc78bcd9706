package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"job-tracker-backend/logger"
)

// DBObjectKey is where the database mirror lives in the bucket.
const DBObjectKey = "db/jobs.db"

// SyncerConfig configures a Syncer.
type SyncerConfig struct {
	DBPath  string
	DBKey   string
	Timeout time.Duration
	Metrics *Metrics
}

// Syncer keeps the local database file mirrored to a Remote. Local disk is
// treated as ephemeral and the remote copy as durable. A nil remote means
// local-only persistence.
type Syncer struct {
	remote  Remote
	dbPath  string
	dbKey   string
	timeout time.Duration
	metrics *Metrics

	// mu serializes local mutation plus push so that concurrent writers
	// cannot overwrite each other's remote copy.
	mu sync.Mutex
}

func NewSyncer(remote Remote, cfg SyncerConfig) *Syncer {
	if cfg.DBKey == "" {
		cfg.DBKey = DBObjectKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Syncer{
		remote:  remote,
		dbPath:  cfg.DBPath,
		dbKey:   cfg.DBKey,
		timeout: cfg.Timeout,
		metrics: cfg.Metrics,
	}
}

// Enabled reports whether a remote store is configured.
func (s *Syncer) Enabled() bool { return s.remote != nil }

// Restore fetches the remote database to the local path. It runs before the
// database is opened. Remote failures and a missing object are logged and
// leave the local file untouched; only local filesystem errors are returned.
func (s *Syncer) Restore(ctx context.Context) error {
	log := logger.Named("sync")
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", s.dbPath)
	}
	if s.remote == nil {
		s.metrics.restore(resultDisabled)
		log.Warnw("no bucket configured, using local-only persistence", "path", s.dbPath)
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.dbPath), ".restore-*")
	if err != nil {
		return errors.Wrap(err, "create restore staging file")
	}
	defer os.Remove(tmp.Name())

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.remote.Download(dctx, s.dbKey, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	switch {
	case errors.Is(err, ErrObjectNotFound):
		s.metrics.restore(resultMissing)
		if _, serr := os.Stat(s.dbPath); serr != nil {
			log.Warnw("no remote database yet, starting empty", logger.FieldKey, s.dbKey, "remote", s.remote.Name())
			return nil
		}
		// Seed the bucket with the surviving local copy.
		if perr := s.Push(ctx); perr != nil {
			log.Warnw("seed remote database from local copy", logger.FieldKey, s.dbKey, logger.FieldError, perr)
			return nil
		}
		log.Infow("seeded remote database from local copy", logger.FieldKey, s.dbKey, "remote", s.remote.Name())
		return nil
	case err != nil:
		s.metrics.restore(resultError)
		log.Warnw("remote database unavailable, starting from local state",
			logger.FieldKey, s.dbKey, "remote", s.remote.Name(), logger.FieldError, err)
		return nil
	}

	if err := os.Rename(tmp.Name(), s.dbPath); err != nil {
		return errors.Wrapf(err, "install restored database at %s", s.dbPath)
	}
	s.metrics.restore(resultOK)
	log.Infow("restored database from remote", logger.FieldKey, s.dbKey, "remote", s.remote.Name())
	return nil
}

// Write runs fn, which must commit its change to the local database, and
// then pushes the whole file to the remote before returning. This is the
// durable write: a nil error means the remote copy reflects the change.
// If fn succeeds but the push fails, the local change stays committed and
// the returned error is marked ErrPushFailed; the next successful push
// carries it.
func (s *Syncer) Write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	return s.push(ctx)
}

// Push uploads the current database file outside a write, e.g. to seed an
// empty bucket at startup.
func (s *Syncer) Push(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.push(ctx)
}

func (s *Syncer) push(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	start := time.Now()

	f, err := os.Open(s.dbPath)
	if err != nil {
		s.metrics.push(resultError, 0)
		return errors.Mark(errors.Wrapf(err, "open %s for push", s.dbPath), ErrPushFailed)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.remote.Upload(ctx, s.dbKey, f, "application/x-sqlite3"); err != nil {
		s.metrics.push(resultError, time.Since(start))
		logger.Named("sync").Errorw("database push failed",
			logger.FieldKey, s.dbKey, "remote", s.remote.Name(), logger.FieldError, err)
		return errors.Mark(errors.Wrap(err, "push database"), ErrPushFailed)
	}
	s.metrics.push(resultOK, time.Since(start))
	return nil
}

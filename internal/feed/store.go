package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// PersistenceError reports a feed document that could not be locked, read,
// parsed or written.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("feed %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Publisher copies the feed documents to wherever readers fetch them.
type Publisher interface {
	Publish(ctx context.Context) error
}

// Store appends entries to one feed document on disk. Every process writing
// the same Path serializes on an exclusive flock of that file.
type Store struct {
	Path   string
	Header Header
	// Length bounds the number of items kept; DefaultLength when zero.
	Length int
	// LockTimeout bounds the wait for the lock; zero waits until ctx is done.
	// A cancellable wait polls the lock every lockRetryDelay.
	LockTimeout time.Duration
	// Publisher, when set, runs after a successful write with the lock still
	// held. Its failure is logged only.
	Publisher Publisher
}

// Write inserts entries, oldest first, so the newest ends up at the top of
// the document, then drops items beyond the retention bound.
func (s *Store) Write(ctx context.Context, entries []Entry) error {
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return &PersistenceError{Path: s.Path, Op: "open", Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistenceError{Path: s.Path, Op: "open", Err: err}
	}

	lock, err := s.lock(ctx)
	if err != nil {
		return &PersistenceError{Path: s.Path, Op: "lock", Err: err}
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Error("feed unlock", slog.String("path", s.Path), slog.Any("error", err))
		}
	}()

	if err := s.update(entries); err != nil {
		return err
	}
	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx); err != nil {
			slog.Warn("feed publish failed", slog.String("path", s.Path), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Store) lock(ctx context.Context) (*flock.Flock, error) {
	lock := flock.New(s.Path)
	if s.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.LockTimeout)
		defer cancel()
	}
	start := time.Now()
	// Only a context that can never end may block in flock(2) itself.
	if ctx.Done() == nil {
		if err := lock.Lock(); err != nil {
			return nil, err
		}
	} else {
		ok, err := lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("lock not acquired")
		}
	}
	slog.Debug("feed locked", slog.String("path", s.Path), slog.Duration("waited", time.Since(start)))
	return lock, nil
}

// update runs the load-modify-persist cycle. The caller holds the lock.
func (s *Store) update(entries []Entry) error {
	f, err := os.OpenFile(s.Path, os.O_RDWR, 0)
	if err != nil {
		return &PersistenceError{Path: s.Path, Op: "open", Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return &PersistenceError{Path: s.Path, Op: "read", Err: err}
	}
	doc, err := ParseDocument(data, s.Header)
	if err != nil {
		return &PersistenceError{Path: s.Path, Op: "parse", Err: err}
	}
	for _, e := range entries {
		doc.InsertAfterHeader(e)
	}
	limit := s.Length
	if limit <= 0 {
		limit = DefaultLength
	}
	dropped := doc.Truncate(limit)

	out, err := doc.Bytes()
	if err != nil {
		return &PersistenceError{Path: s.Path, Op: "serialize", Err: err}
	}
	if err := f.Truncate(0); err != nil {
		return &PersistenceError{Path: s.Path, Op: "truncate", Err: err}
	}
	if _, err := f.WriteAt(out, 0); err != nil {
		return &PersistenceError{Path: s.Path, Op: "write", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &PersistenceError{Path: s.Path, Op: "sync", Err: err}
	}
	slog.Debug("feed written",
		slog.String("path", s.Path),
		slog.Int("added", len(entries)),
		slog.Int("dropped", dropped),
		slog.Int("items", doc.Len()),
	)
	return nil
}

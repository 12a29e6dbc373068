// Package fault wraps individual filesystem operations with a per-operation
// timeout and bounded retry for transient failures. Removable and network
// media fail in ways a catalog run has to ride out: momentary share
// unavailability, stale handles, busy devices. Permission and path-length
// failures are never retried; they propagate as classified outcomes so the
// caller can count and skip.
package fault

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Class categorizes a filesystem failure for retry and skip decisions.
type Class int

// Failure classes.
const (
	// ClassNone means no error.
	ClassNone Class = iota

	// ClassTransient failures (timeouts, busy devices, stale handles) are
	// retried with exponential backoff.
	ClassTransient

	// ClassPermission failures are never retried; the entry is skipped and
	// counted.
	ClassPermission

	// ClassPathTooLong failures are never retried; the path-policy layer
	// decides whether to attempt an extended form.
	ClassPathTooLong

	// ClassOther covers everything else; not retried.
	ClassOther
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassPermission:
		return "permission"
	case ClassPathTooLong:
		return "path-too-long"
	default:
		return "other"
	}
}

// ErrOpTimeout is returned when a single operation exceeds the executor's
// per-operation timeout. It classifies as transient.
var ErrOpTimeout = errors.New("filesystem operation timed out")

// Classify returns the failure class for an error.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	if errors.Is(err, ErrOpTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	if errors.Is(err, fs.ErrPermission) {
		return ClassPermission
	}

	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ENAMETOOLONG:
			return ClassPathTooLong
		case unix.EACCES, unix.EPERM:
			return ClassPermission
		case unix.EAGAIN, unix.EBUSY, unix.ESTALE, unix.EIO, unix.EINTR,
			unix.ETIMEDOUT, unix.EHOSTDOWN, unix.EHOSTUNREACH, unix.ENETUNREACH:
			return ClassTransient
		}
	}

	return ClassOther
}

// Options configures retry behavior for filesystem operations.
type Options struct {
	// MaxAttempts is the total number of attempts per operation.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt. It doubles
	// per attempt up to MaxBackoff, so a given failure sequence always
	// produces the same schedule.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// Timeout bounds each individual attempt. It doubles as the upper
	// bound on cancellation latency for callers blocked in an operation.
	Timeout time.Duration
}

// DefaultOptions returns sensible defaults for unreliable media.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    4,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Timeout:        30 * time.Second,
	}
}

// Executor runs filesystem operations under the retry policy.
// It is stateless apart from its options and safe for concurrent use.
type Executor struct {
	opts Options
}

// New creates an executor. Zero or negative option fields fall back to
// defaults.
func New(opts Options) *Executor {
	def := DefaultOptions()
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = def.MaxBackoff
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Executor{opts: opts}
}

// Do runs fn under the per-attempt timeout, retrying transient failures
// with exponential backoff. The last error is returned once attempts are
// exhausted. Non-transient failures return immediately.
func (e *Executor) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := e.opts.InitialBackoff

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		err := e.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if Classify(err) != ClassTransient {
			return err
		}

		if attempt == e.opts.MaxAttempts {
			break
		}

		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}

		backoff *= 2
		if backoff > e.opts.MaxBackoff {
			backoff = e.opts.MaxBackoff
		}
	}

	return lastErr
}

// attempt runs fn once, bounded by the per-operation timeout.
// A hung filesystem call cannot be interrupted, so the goroutine running
// fn may outlive the attempt; the result channel is buffered so it never
// leaks blocked.
func (e *Executor) attempt(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	go func() {
		result <- fn()
	}()

	timer := time.NewTimer(e.opts.Timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return ErrOpTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stat performs os.Stat under the retry policy.
func (e *Executor) Stat(ctx context.Context, path string) (os.FileInfo, error) {
	var info os.FileInfo
	err := e.Do(ctx, func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	return info, err
}

// Lstat performs os.Lstat under the retry policy.
func (e *Executor) Lstat(ctx context.Context, path string) (os.FileInfo, error) {
	var info os.FileInfo
	err := e.Do(ctx, func() error {
		var statErr error
		info, statErr = os.Lstat(path)
		return statErr
	})
	return info, err
}

// Open performs os.Open under the retry policy.
func (e *Executor) Open(ctx context.Context, path string) (*os.File, error) {
	var file *os.File
	err := e.Do(ctx, func() error {
		var openErr error
		file, openErr = os.Open(path)
		return openErr
	})
	return file, err
}

// ReadDir performs os.ReadDir under the retry policy.
func (e *Executor) ReadDir(ctx context.Context, dir string) ([]os.DirEntry, error) {
	var entries []os.DirEntry
	err := e.Do(ctx, func() error {
		var readErr error
		entries, readErr = os.ReadDir(dir)
		return readErr
	})
	return entries, err
}

// Read reads up to len(buf) bytes from f under the retry policy.
// io.EOF is returned to the caller unretried.
func (e *Executor) Read(ctx context.Context, f *os.File, buf []byte) (int, error) {
	var n int
	err := e.Do(ctx, func() error {
		var readErr error
		n, readErr = f.Read(buf)
		return readErr
	})
	return n, err
}

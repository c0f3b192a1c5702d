// Package session implements the logger session: the object that numbers,
// times, mirrors and persists every log record of one unit of work.
//
// A Session owns a sequence counter, its start time and the time of the
// last record, and a run directory named after the start time. Each log call
// builds an immutable record.Record, optionally prints it through a
// console.Mirror and optionally hands it to a store.Store. Sequence numbers
// and timing are assigned under the session's lock before any store call, so
// they follow call order even when asynchronous writes finish out of order.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/smollog/internal/callsite"
	"github.com/Iron-Ham/smollog/internal/console"
	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/logging"
	"github.com/Iron-Ham/smollog/internal/payload"
	"github.com/Iron-Ham/smollog/internal/record"
	"github.com/Iron-Ham/smollog/internal/store"
)

// CallerDepth is the callsite.Depth skip that reports the code calling Log,
// LogAsync, Emit or Tap.
const CallerDepth = 1

// Options configures a Session. Use DefaultOptions for the usual settings;
// the zero value disables both console mirroring and persistence.
type Options struct {
	// MirrorToConsole prints every record to Console.
	MirrorToConsole bool
	// Persist hands every record to Store. The run directory is created
	// only when Persist is set.
	Persist bool
	// Root is the parent of the run directory. Defaults to DefaultRoot.
	Root string
	// PadWidth is the number of digits sequences are padded to in record
	// names. Defaults to record.DefaultPadWidth.
	PadWidth int

	// Store replaces the default file store.
	Store store.Store
	// Fs is the filesystem the run directory and default store use.
	// Defaults to the OS filesystem.
	Fs afero.Fs
	// Console receives mirrored records. Defaults to os.Stdout.
	Console io.Writer
	// Resolver locates the caller of each log call. Defaults to
	// callsite.Runtime().
	Resolver callsite.Resolver
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Logger receives the session's own diagnostics.
	Logger *logging.Logger

	// Color enables ANSI styling on the console.
	Color bool
	// MaxWidth truncates console lines. Zero means unlimited.
	MaxWidth int
}

// DefaultOptions mirrors to the console and persists under DefaultRoot.
func DefaultOptions() Options {
	return Options{
		MirrorToConsole: true,
		Persist:         true,
		Root:            DefaultRoot,
		PadWidth:        record.DefaultPadWidth,
		Color:           true,
	}
}

// state is shared between a session and the children returned by With.
type state struct {
	mu      sync.Mutex
	counter uint64
	last    time.Time
}

// Session produces log records. It is safe for concurrent use, although
// sequence order then reflects lock acquisition order.
type Session struct {
	id       string
	started  time.Time
	runDir   string
	persist  bool
	padWidth int

	store    store.Store
	mirror   *console.Mirror
	resolver callsite.Resolver
	clock    func() time.Time
	logger   *logging.Logger

	state  *state
	fields []payload.Field
}

// New starts a session. When persistence is enabled the run directory is
// created immediately; a failure to create it is returned as a
// *errors.StorageError.
func New(opts Options) (*Session, error) {
	if opts.Root == "" {
		opts.Root = DefaultRoot
	}
	if opts.PadWidth <= 0 {
		opts.PadWidth = record.DefaultPadWidth
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Resolver == nil {
		opts.Resolver = callsite.Runtime()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}

	started := opts.Clock()
	s := &Session{
		id:       uuid.NewString(),
		started:  started,
		runDir:   filepath.Join(opts.Root, RunDirName(started)),
		persist:  opts.Persist,
		padWidth: opts.PadWidth,
		resolver: opts.Resolver,
		clock:    opts.Clock,
		state:    &state{last: started},
	}

	if opts.Persist {
		dir, err := uniqueRunDir(opts.Fs, opts.Root, RunDirName(started))
		if err != nil {
			return nil, errors.NewStorageError("failed to choose run directory", err).WithPath(s.runDir)
		}
		if err := opts.Fs.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewStorageError("failed to create run directory", err).WithPath(dir)
		}
		s.runDir = dir
	}

	s.store = opts.Store
	if s.store == nil {
		s.store = store.NewFileStore(opts.Fs, s.runDir, opts.PadWidth)
	}

	s.logger = opts.Logger.WithSession(s.id).WithRun(s.runDir)

	if opts.MirrorToConsole {
		s.mirror = console.New(opts.Console, console.Options{Color: opts.Color, MaxWidth: opts.MaxWidth})
		dest := ""
		if opts.Persist {
			dest = s.runDir
			if opts.Store != nil {
				dest = fmt.Sprintf("%T", opts.Store)
			}
		}
		s.mirror.Banner(s.id, dest)
	}

	s.logger.Info("session started",
		"persist", opts.Persist,
		"mirror_to_console", opts.MirrorToConsole,
	)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// RunDir returns the run directory. It exists only when persistence is on.
func (s *Session) RunDir() string {
	return s.runDir
}

// Started returns the session start time.
func (s *Session) Started() time.Time {
	return s.started
}

// Persisting reports whether records are handed to the store.
func (s *Session) Persisting() bool {
	return s.persist
}

// Logger returns the session's diagnostic logger.
func (s *Session) Logger() *logging.Logger {
	return s.logger
}

// With returns a child session that attaches the given key/value fields to
// every record it produces. Arguments alternate between string keys and
// values. The child shares the parent's counter, timestamps and run
// directory. Keys must not start with record.ReservedPrefix.
func (s *Session) With(args ...any) (*Session, error) {
	if len(args)%2 != 0 {
		return nil, errors.NewValidationError("With expects key/value pairs").WithValue(len(args))
	}

	fields := make([]payload.Field, 0, len(s.fields)+len(args)/2)
	fields = append(fields, s.fields...)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			return nil, errors.NewValidationError("field name must be a string").WithValue(args[i])
		}
		if err := record.ValidateFieldKey(key); err != nil {
			return nil, err
		}
		v, err := payload.Normalize(args[i+1])
		if err != nil {
			return nil, errors.NewValidationError("field value cannot be serialized").WithField(key).WithCause(err)
		}
		fields = setField(fields, key, v)
	}

	child := *s
	child.fields = fields
	return &child, nil
}

func setField(fields []payload.Field, key string, v payload.Value) []payload.Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = v
			return fields
		}
	}
	return append(fields, payload.Field{Key: key, Value: v})
}

// Log records v under label and returns v unchanged, so it can wrap any
// expression. Records are persisted synchronously.
func (s *Session) Log(label string, v any) (any, error) {
	rec, err := s.create(label, v)
	if err != nil {
		return v, err
	}
	return v, s.persistRecord(context.Background(), rec)
}

// LogAsync records v under label and persists it in the background. The
// sequence number and timing are assigned before LogAsync returns; the
// channel receives the store's result and is then closed.
func (s *Session) LogAsync(ctx context.Context, label string, v any) (any, <-chan error) {
	done := make(chan error, 1)

	rec, err := s.create(label, v)
	if err != nil {
		done <- err
		close(done)
		return v, done
	}

	go func() {
		defer close(done)
		done <- s.persistRecord(ctx, rec)
	}()
	return v, done
}

// Emit records v under label, persists it, and returns the record. It is the
// primitive the function wrapper builds on.
func (s *Session) Emit(ctx context.Context, label string, v any) (*record.Record, error) {
	rec, err := s.create(label, v)
	if err != nil {
		return nil, err
	}
	return rec, s.persistRecord(ctx, rec)
}

// Tap logs v and returns it. It panics if the record cannot be created or
// stored, which makes it usable inline in expressions.
func Tap[T any](s *Session, label string, v T) T {
	rec, err := s.create(label, v)
	if err == nil {
		err = s.persistRecord(context.Background(), rec)
	}
	if err != nil {
		panic(err)
	}
	return v
}

// create builds the next record. The call site is resolved first so a
// misconfigured resolver does not consume a sequence number.
func (s *Session) create(label string, v any) (*record.Record, error) {
	site, err := s.resolver.Resolve()
	if err != nil {
		s.logger.WithLabel(label).Error("call site resolution failed",
			"error", err, "severity", errors.GetSeverity(err).String())
		if s.mirror != nil {
			s.mirror.Warn(label, err.Error())
		}
		return nil, err
	}

	val, err := payload.Normalize(v)
	if err != nil {
		// The console line and the record fall back to a description.
		s.logger.WithLabel(label).Warn("payload cannot be serialized", "error", err, "type", fmt.Sprintf("%T", v))
		val = payload.String(console.Describe(v, err))
	}

	s.state.mu.Lock()
	now := s.clock()
	seq := s.state.counter
	s.state.counter++
	sinceStart := now.Sub(s.started).Seconds()
	sinceLast := now.Sub(s.state.last).Seconds()
	if sinceLast < 0 {
		sinceLast = 0
	}
	if now.After(s.state.last) {
		s.state.last = now
	}
	s.state.mu.Unlock()

	rec := &record.Record{
		Sequence: seq,
		Label:    label,
		CallSite: site,
		Timing:   record.Timing{SinceStart: sinceStart, SinceLast: sinceLast},
		Fields:   s.fields,
		Payload:  val,
	}

	if s.mirror != nil {
		s.mirror.Record(rec.Name(s.padWidth), site, sinceStart, val)
	}
	return rec, nil
}

// persistRecord hands rec to the store when persistence is enabled.
func (s *Session) persistRecord(ctx context.Context, rec *record.Record) error {
	if !s.persist {
		return nil
	}

	if err := s.store.Store(ctx, rec); err != nil {
		var se *errors.StorageError
		if !errors.As(err, &se) {
			err = errors.NewStorageError("store rejected record", err).WithSequence(rec.Sequence)
		}
		s.logger.WithLabel(rec.Label).Error("failed to store record",
			"sequence", rec.Sequence, "error", err, "retryable", errors.IsRetryable(err))
		if s.mirror != nil {
			s.mirror.Warn(rec.Name(s.padWidth), err.Error())
		}
		return err
	}

	if s.mirror != nil {
		if d, ok := s.store.(store.Destination); ok {
			s.mirror.Stored(rec.Name(s.padWidth), d.Destination(rec))
		}
	}
	return nil
}

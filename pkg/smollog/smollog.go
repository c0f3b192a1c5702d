// Package smollog records labelled values as sequenced, timestamped JSON
// files and flattens them into a single table for analysis.
//
// A Session owns one run directory. Every Log call assigns the next
// sequence number, resolves the caller's source location, measures the time
// since the session started and since the previous record, and persists the
// record through the session's Store:
//
//	s, err := smollog.New(smollog.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	s.Log("config loaded", cfg)
//
//	fetch := smollog.Wrap(s, fetchUser, smollog.WrapOptions[int, User]{})
//	u, err := fetch(ctx, 7)
//
// Export later turns every run directory under the root into one TSV file.
package smollog

import (
	"github.com/spf13/afero"

	"github.com/Iron-Ham/smollog/internal/callsite"
	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/flatten"
	"github.com/Iron-Ham/smollog/internal/payload"
	"github.com/Iron-Ham/smollog/internal/record"
	"github.com/Iron-Ham/smollog/internal/session"
	"github.com/Iron-Ham/smollog/internal/store"
	"github.com/Iron-Ham/smollog/internal/wrap"
)

type (
	// Session is a logging session bound to one run directory.
	Session = session.Session
	// Options configures New.
	Options = session.Options
	// Record is one persisted log entry.
	Record = record.Record
	// Location is a resolved source position.
	Location = callsite.Location
	// Resolver locates the caller of a log call.
	Resolver = callsite.Resolver
	// Store persists records.
	Store = store.Store
	// StoreFunc adapts a function to Store.
	StoreFunc = store.Func
	// MemoryStore keeps records in memory.
	MemoryStore = store.MemoryStore
	// Table is a flattened export.
	Table = flatten.Table
	// ExportOptions configures Flatten and Export.
	ExportOptions = flatten.Options
	// Pair is one member of Pairs.
	Pair = payload.Pair
	// Pairs is an object payload that keeps its key order.
	Pairs = payload.Pairs
	// RunInfo summarizes one run directory.
	RunInfo = session.RunInfo
)

// WrapOptions configures Wrap.
type WrapOptions[A, R any] = wrap.Options[A, R]

// Func is the shape of functions Wrap accepts and returns.
type Func[A, R any] = wrap.Func[A, R]

// CallerDepth is the skip that makes a Depth resolver report the caller of
// a Session method.
const CallerDepth = session.CallerDepth

var (
	ErrResolverMisconfigured = errors.ErrResolverMisconfigured
	ErrStorageFailed         = errors.ErrStorageFailed
	ErrReservedField         = errors.ErrReservedField
	ErrSchemaMismatch        = errors.ErrSchemaMismatch
	ErrNoData                = errors.ErrNoData
	ErrNotFound              = errors.ErrNotFound
)

// New starts a session.
func New(opts Options) (*Session, error) {
	return session.New(opts)
}

// DefaultOptions mirrors to the console and persists under ".logs".
func DefaultOptions() Options {
	return session.DefaultOptions()
}

// Tap logs v and returns it, panicking if the record cannot be stored.
// A Depth resolver sees one more frame here than through Session.Log.
func Tap[T any](s *Session, label string, v T) T {
	return session.Tap(s, label, v)
}

// Wrap returns fn instrumented to record one entry per call.
func Wrap[A, R any](s *Session, fn Func[A, R], opts WrapOptions[A, R]) Func[A, R] {
	return wrap.Wrap(s, fn, opts)
}

// Flatten reads every run directory under root on the local filesystem.
func Flatten(root string, opts ExportOptions) (*Table, error) {
	return flatten.New(afero.NewOsFs(), opts).Flatten(root)
}

// Export flattens root and writes the table into it, returning the path.
func Export(root string, opts ExportOptions) (string, *Table, error) {
	return flatten.New(afero.NewOsFs(), opts).Export(root)
}

// ListRuns lists the run directories under root on the local filesystem.
func ListRuns(root string) ([]*RunInfo, error) {
	return session.ListRuns(afero.NewOsFs(), root)
}

// NewFileStore writes one file per record into dir on the local filesystem.
func NewFileStore(dir string, padWidth int) Store {
	return store.NewFileStore(afero.NewOsFs(), dir, padWidth)
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return store.NewMemoryStore()
}

// NewMultiStore fans records out to every store.
func NewMultiStore(stores ...Store) Store {
	return store.NewMulti(stores...)
}

// RuntimeResolver skips frames whose function name starts with one of
// prefixes. Without prefixes it skips this module's own packages.
func RuntimeResolver(prefixes ...string) Resolver {
	return callsite.Runtime(prefixes...)
}

// DepthResolver reports the frame skip levels above the logging call.
func DepthResolver(skip int) Resolver {
	return callsite.Depth(skip)
}

// StaticResolver always reports loc.
func StaticResolver(loc Location) Resolver {
	return callsite.Static(loc)
}

// NoResolver leaves every call site unresolved.
func NoResolver() Resolver {
	return callsite.None()
}

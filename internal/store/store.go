// Package store provides the sinks a session persists records to.
//
// A Store receives every record a session builds when persistence is
// enabled. The default FileStore writes one pretty-printed JSON file per
// record into the session's run directory; other implementations redirect
// records elsewhere without changing the session.
package store

import (
	"context"

	"github.com/Iron-Ham/smollog/internal/record"
)

// Store persists records. Implementations must not silently drop failures:
// an error returned here reaches the caller of the log operation.
type Store interface {
	Store(ctx context.Context, rec *record.Record) error
}

// Func adapts a function to the Store interface.
type Func func(ctx context.Context, rec *record.Record) error

// Store calls f(ctx, rec).
func (f Func) Store(ctx context.Context, rec *record.Record) error {
	return f(ctx, rec)
}

// Destination is implemented by stores that can name where a record ends up,
// such as a file path. The console mirror prints it after a successful write.
type Destination interface {
	Destination(rec *record.Record) string
}

// Discard is a Store that accepts and drops every record.
var Discard Store = Func(func(context.Context, *record.Record) error { return nil })

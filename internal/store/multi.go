package store

import (
	"context"

	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/record"
)

// Multi fans a record out to several stores in order. A failing store does
// not stop delivery to the rest; all failures are joined.
type Multi struct {
	stores []Store
}

// NewMulti returns a Multi writing to stores.
func NewMulti(stores ...Store) *Multi {
	return &Multi{stores: stores}
}

// Store delivers rec to every wrapped store.
func (m *Multi) Store(ctx context.Context, rec *record.Record) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Store(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Destination returns the destination of the first wrapped store that
// reports one.
func (m *Multi) Destination(rec *record.Record) string {
	for _, s := range m.stores {
		if d, ok := s.(Destination); ok {
			return d.Destination(rec)
		}
	}
	return ""
}

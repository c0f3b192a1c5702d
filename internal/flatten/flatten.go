// Package flatten turns a tree of persisted log records into one
// tab-separated table.
//
// The schema is inferred from a single sample: the first record file of the
// first run directory. Its top-level keys become headers, and the keys of
// its payload become "payload:<key>" headers one level deep. Every record is
// then flattened against that schema without re-deriving it, so a record
// whose payload shape differs produces a ragged row. Strict mode turns that
// into a *errors.SchemaMismatchError instead.
package flatten

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/logging"
	"github.com/Iron-Ham/smollog/internal/payload"
	"github.com/Iron-Ham/smollog/internal/record"
	"github.com/Iron-Ham/smollog/internal/session"
)

// Separator delimits cells.
const Separator = "\t"

// DefaultOutput is the export artifact written into the log root.
const DefaultOutput = "logs.tsv"

// CompressedExt is appended to the artifact name when compression is on.
const CompressedExt = ".zst"

// PayloadHeaderPrefix prefixes headers derived from payload keys.
const PayloadHeaderPrefix = "payload:"

// Payload shape tags, written in the cell before the payload values.
const (
	TagArray  = "arrayOfLength"
	TagObject = "objectWithFields:"
	TagScalar = "rawValue"
)

// Options configures a Flattener.
type Options struct {
	// Output is the artifact file name inside the root. Defaults to
	// DefaultOutput.
	Output string
	// Strict fails on the first record whose shape differs from the sample
	// and on unreadable record files.
	Strict bool
	// Compress writes the artifact zstd-compressed with a ".zst" suffix.
	Compress bool
	// Logger receives warnings about skipped files and ragged rows.
	Logger *logging.Logger
}

// Flattener reads run directories from a filesystem.
type Flattener struct {
	fs     afero.Fs
	opts   Options
	logger *logging.Logger
}

// New returns a Flattener reading from fs.
func New(fs afero.Fs, opts Options) *Flattener {
	if opts.Output == "" {
		opts.Output = DefaultOutput
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Flattener{fs: fs, opts: opts, logger: logger}
}

// sample is the shape every row is compared with.
type sample struct {
	// width is the cell count of the sample's own row. It equals the header
	// count except for scalar payloads, whose tag cell has no header.
	width       int
	topKeys     []string
	payloadKind payload.Kind
	payloadKeys []string
	payloadLen  int
}

// Flatten builds the table for every run directory under root. A root with
// no run directories, or whose first run directory holds no records,
// yields an empty table and no error.
func (f *Flattener) Flatten(root string) (*Table, error) {
	dirs, err := f.runDirs(root)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		f.logger.Info("no run directories", "root", root)
		return &Table{}, nil
	}

	files, err := f.recordFiles(dirs[0])
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		f.logger.Info("no records in first run directory", "dir", dirs[0])
		return &Table{}, nil
	}

	table := &Table{}
	var schema *sample
	for _, dir := range dirs {
		files, err := f.recordFiles(dir)
		if err != nil {
			if f.opts.Strict {
				return nil, err
			}
			f.logger.Warn("skipping unreadable run directory", "dir", dir, "error", err)
			continue
		}

		for _, file := range files {
			v, err := f.readRecord(file)
			if err != nil {
				if f.opts.Strict {
					return nil, err
				}
				f.logger.Warn("skipping unreadable record", "file", file, "error", err)
				continue
			}

			if schema == nil {
				schema = inferSchema(v)
				table.Headers = headers(v)
			}

			row := flattenRecord(v)
			if len(row) != schema.width || !schema.matches(v) {
				if f.opts.Strict {
					return nil, errors.NewSchemaMismatchError(file, schema.width, len(row)).
						WithMessage(schema.describeMismatch(v))
				}
				f.logger.Warn("record shape differs from sample", "file", file, "cells", len(row), "sample_cells", schema.width)
			}
			table.Rows = append(table.Rows, row)
			table.Sources = append(table.Sources, file)
		}
	}
	return table, nil
}

// Export flattens root and writes the table to root/Output. It returns
// errors.ErrNoData, and writes nothing, when the table is empty.
func (f *Flattener) Export(root string) (string, *Table, error) {
	table, err := f.Flatten(root)
	if err != nil {
		return "", nil, err
	}
	if table.Empty() {
		return "", table, errors.ErrNoData
	}

	path := filepath.Join(root, f.opts.Output)
	if f.opts.Compress && !strings.HasSuffix(path, CompressedExt) {
		path += CompressedExt
	}
	if err := f.write(path, table); err != nil {
		return "", nil, errors.NewStorageError("failed to write export", err).WithPath(path)
	}

	f.logger.Info("exported table", "path", path, "rows", len(table.Rows), "ragged", len(table.Ragged()))
	return path, table, nil
}

func (f *Flattener) write(path string, table *Table) (err error) {
	file, err := f.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close artifact: %w", cerr)
		}
	}()

	var w io.Writer = file
	var enc *zstd.Encoder
	if f.opts.Compress {
		enc, err = zstd.NewWriter(file)
		if err != nil {
			return fmt.Errorf("failed to create compressor: %w", err)
		}
		w = enc
	}

	if _, err := table.WriteTo(w); err != nil {
		if enc != nil {
			_ = enc.Close()
		}
		return fmt.Errorf("failed to write table: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush compressor: %w", err)
		}
	}
	return nil
}

// runDirs lists the immediate subdirectories of root, oldest run first.
func (f *Flattener) runDirs(root string) ([]string, error) {
	entries, err := afero.ReadDir(f.fs, root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("log directory", root).WithCause(err)
		}
		return nil, fmt.Errorf("failed to list log directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.SortFunc(names, session.CompareRunNames)

	dirs := make([]string, len(names))
	for i, name := range names {
		dirs[i] = filepath.Join(root, name)
	}
	return dirs, nil
}

// recordFiles lists the .json files of one run directory in sequence order.
func (f *Flattener) recordFiles(dir string) ([]string, error) {
	entries, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list run directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != session.RecordExt {
			continue
		}
		names = append(names, e.Name())
	}
	slices.SortFunc(names, record.CompareFileNames)

	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(dir, name)
	}
	return files, nil
}

func (f *Flattener) readRecord(path string) (payload.Value, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return payload.Value{}, fmt.Errorf("failed to read record: %w", err)
	}
	v, err := payload.Parse(data)
	if err != nil {
		return payload.Value{}, errors.Wrapf(err, "parsing %s", filepath.Base(path))
	}
	if v.Kind() != payload.KindObject {
		return payload.Value{}, errors.NewValidationError("record is not a JSON object").
			WithField(filepath.Base(path)).
			WithValue(v.Kind().String())
	}
	return v, nil
}

// headers derives the table headers from the sample record.
func headers(v payload.Value) []string {
	hs := v.Keys()
	p, ok := v.Get(record.KeyPayload)
	if !ok {
		return hs
	}
	switch p.Kind() {
	case payload.KindObject:
		for _, k := range p.Keys() {
			hs = append(hs, PayloadHeaderPrefix+k)
		}
	case payload.KindArray:
		for i := range p.Len() {
			hs = append(hs, PayloadHeaderPrefix+strconv.Itoa(i))
		}
	}
	return hs
}

// flattenRecord renders one record as cells in its own key order.
func flattenRecord(v payload.Value) []string {
	var row []string
	for _, f := range v.Fields() {
		if f.Key != record.KeyPayload {
			row = append(row, f.Value.Text())
			continue
		}
		row = append(row, flattenPayload(f.Value)...)
	}
	return row
}

// flattenPayload renders the shape tag followed by one cell per element,
// one cell per field value, or the scalar itself.
func flattenPayload(p payload.Value) []string {
	switch p.Kind() {
	case payload.KindArray:
		items := p.Items()
		cells := make([]string, 0, len(items)+1)
		cells = append(cells, TagArray+strconv.Itoa(len(items)))
		for _, item := range items {
			cells = append(cells, item.Text())
		}
		return cells
	case payload.KindObject:
		fields := p.Fields()
		cells := make([]string, 0, len(fields)+1)
		cells = append(cells, TagObject+strings.Join(p.Keys(), ","))
		for _, f := range fields {
			cells = append(cells, f.Value.Text())
		}
		return cells
	default:
		return []string{TagScalar, p.Text()}
	}
}

func inferSchema(v payload.Value) *sample {
	s := &sample{width: len(flattenRecord(v)), topKeys: v.Keys(), payloadKind: payload.KindScalar}
	if p, ok := v.Get(record.KeyPayload); ok {
		s.payloadKind = p.Kind()
		s.payloadKeys = p.Keys()
		s.payloadLen = p.Len()
	}
	return s
}

// matches reports whether v has the sample's key order and payload shape.
func (s *sample) matches(v payload.Value) bool {
	return s.describeMismatch(v) == ""
}

func (s *sample) describeMismatch(v payload.Value) string {
	if keys := v.Keys(); !slices.Equal(keys, s.topKeys) {
		return fmt.Sprintf("top-level keys %v differ from sample %v", keys, s.topKeys)
	}
	p, _ := v.Get(record.KeyPayload)
	if p.Kind() != s.payloadKind {
		return fmt.Sprintf("payload is %s, sample payload is %s", p.Kind(), s.payloadKind)
	}
	switch p.Kind() {
	case payload.KindObject:
		if keys := p.Keys(); !slices.Equal(keys, s.payloadKeys) {
			return fmt.Sprintf("payload keys %v differ from sample %v", keys, s.payloadKeys)
		}
	case payload.KindArray:
		if p.Len() != s.payloadLen {
			return fmt.Sprintf("payload length %d differs from sample %d", p.Len(), s.payloadLen)
		}
	}
	return ""
}

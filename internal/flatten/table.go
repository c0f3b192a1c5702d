package flatten

import (
	"bufio"
	"io"
	"strings"
)

// Table is the flattened export: one header line and one row per record
// file. Rows may be ragged when a record's payload shape differs from the
// schema sample.
type Table struct {
	Headers []string
	Rows    [][]string
	// Sources holds the record file each row was read from.
	Sources []string
}

// Empty reports whether there was no data to flatten.
func (t *Table) Empty() bool {
	return t == nil || (len(t.Headers) == 0 && len(t.Rows) == 0)
}

// Ragged returns the indexes of rows whose cell count differs from the
// header count.
func (t *Table) Ragged() []int {
	if t == nil {
		return nil
	}
	var idx []int
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			idx = append(idx, i)
		}
	}
	return idx
}

// WriteTo writes the table as tab-separated values: the header line and a
// newline, then the rows separated by newlines. There is no trailing newline
// after the last row.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(s string) error {
		m, err := bw.WriteString(s)
		n += int64(m)
		return err
	}

	if err := write(strings.Join(t.Headers, Separator) + "\n"); err != nil {
		return n, err
	}
	for i, row := range t.Rows {
		if i > 0 {
			if err := write("\n"); err != nil {
				return n, err
			}
		}
		if err := write(strings.Join(row, Separator)); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// String returns the TSV text of the table.
func (t *Table) String() string {
	var sb strings.Builder
	_, _ = t.WriteTo(&sb)
	return sb.String()
}

package console

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/smollog/internal/callsite"
	"github.com/Iron-Ham/smollog/internal/payload"
)

type failingJSON struct{}

func (failingJSON) MarshalJSON() ([]byte, error) { return nil, errors.New("cannot encode") }

func TestMirror_Record(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, Options{})

	site := &callsite.Location{File: "main.go", Line: 10, Column: 2}
	m.Record("000: start", site, 1.234, map[string]int{"a": 1})

	want := "000: start main.go:10:2 with 1.23 seconds elapsed\n" +
		"000: start {\n  \"a\": 1\n}\n"
	if buf.String() != want {
		t.Errorf("output =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestMirror_UnknownSite(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, Options{})
	m.Record("001: x", nil, 0, 5)

	if !strings.HasPrefix(buf.String(), "001: x UNKNOWN with 0.00 seconds elapsed\n") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestMirror_Stored(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{}).Stored("002: y", ".logs/run/002: y.json")

	if got := buf.String(); got != "002: y Stored to .logs/run/002: y.json\n" {
		t.Errorf("output = %q", got)
	}
}

func TestMirror_Banner(t *testing.T) {
	t.Run("with destination", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, Options{}).Banner("abc", ".logs/run")
		out := buf.String()
		if !strings.Contains(out, "printing verbose logs") || !strings.Contains(out, "(session abc)") {
			t.Errorf("missing mirroring line: %q", out)
		}
		if !strings.Contains(out, "storing logs to .logs/run") {
			t.Errorf("missing destination line: %q", out)
		}
	})

	t.Run("without persistence", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, Options{}).Banner("abc", "")
		if strings.Contains(buf.String(), "storing logs") {
			t.Errorf("unexpected destination line: %q", buf.String())
		}
	})
}

func TestMirror_Warn(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{}).Warn("003: z", "transform failed")
	if got := buf.String(); got != "003: z transform failed\n" {
		t.Errorf("output = %q", got)
	}
}

func TestMirror_MaxWidth(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, Options{MaxWidth: 20})
	m.Record("000: wide", nil, 0, strings.Repeat("x", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		if len(line) > 20 {
			t.Errorf("line exceeds max width: %q", line)
		}
	}
}

func TestMirror_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, Options{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Stored("n", "d")
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "n Stored to d\n"); got != 10 {
		t.Errorf("got %d complete lines, want 10", got)
	}
}

func TestFormatPayload(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"scalar", "hi", `"hi"`},
		{"value", payload.Array(payload.Int(1)), "[\n  1\n]"},
		{"nil", nil, "null"},
		{"unserializable", failingJSON{}, "<unserializable console.failingJSON: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatPayload(tt.in)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("FormatPayload() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(make(chan int), nil); got != "<unserializable chan int>" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestColorStyles(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, Options{Color: true})
	// Styling depends on the renderer's detected profile; the text itself
	// must always be present.
	m.Stored("004: c", "dest")
	if !strings.Contains(buf.String(), "Stored to dest") {
		t.Errorf("output = %q", buf.String())
	}
}

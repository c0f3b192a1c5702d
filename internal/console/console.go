// Package console mirrors log records to an interactive writer.
//
// Every line is built as a string by a Format function and then written by
// the Mirror in one call, so nothing in the process-wide output streams is
// redirected while a record is printed. Rendering never fails: a payload
// that cannot be serialized is described by its type instead.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Iron-Ham/smollog/internal/callsite"
	"github.com/Iron-Ham/smollog/internal/payload"
	"github.com/Iron-Ham/smollog/internal/util"
)

// unknownSite is printed when a record has no call site.
const unknownSite = "UNKNOWN"

// Styles holds the lipgloss styles used on console lines.
type Styles struct {
	Label lipgloss.Style
	Muted lipgloss.Style
	Warn  lipgloss.Style
}

// NewStyles builds the console styles on renderer r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Label: r.NewStyle().Foreground(lipgloss.Color("3")),
		Muted: r.NewStyle().Foreground(lipgloss.Color("8")),
		Warn:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// Options configures a Mirror.
type Options struct {
	// Color enables ANSI styling. When false all output is plain text.
	Color bool
	// MaxWidth truncates every printed line to this many columns. Zero means
	// unlimited.
	MaxWidth int
}

// Mirror writes formatted records to w. It is safe for concurrent use.
type Mirror struct {
	mu       sync.Mutex
	w        io.Writer
	styles   Styles
	maxWidth int
}

// New returns a Mirror writing to w.
func New(w io.Writer, opts Options) *Mirror {
	r := lipgloss.NewRenderer(w)
	if !opts.Color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Mirror{w: w, styles: NewStyles(r), maxWidth: opts.MaxWidth}
}

// Banner announces that console mirroring is on and, when records are
// persisted, where they go.
func (m *Mirror) Banner(sessionID, dest string) {
	m.write(FormatBanner(m.styles, sessionID, dest))
}

// Record prints the header and payload lines for one record.
func (m *Mirror) Record(name string, site *callsite.Location, sinceStart float64, v any) {
	m.write(FormatRecord(m.styles, name, site, sinceStart, v))
}

// Stored prints where a record was persisted.
func (m *Mirror) Stored(name, dest string) {
	m.write(FormatStored(m.styles, name, dest))
}

// Warn prints a highlighted warning line for a record.
func (m *Mirror) Warn(name, msg string) {
	m.write(m.styles.Label.Render(name) + " " + m.styles.Warn.Render(msg))
}

// write emits text as a single write. Console errors are ignored; logging
// must keep working when the terminal goes away.
func (m *Mirror) write(text string) {
	text = util.TruncateLines(text, m.maxWidth)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = io.WriteString(m.w, text+"\n")
}

// FormatBanner returns the session start lines. dest is empty when records
// are not persisted.
func FormatBanner(s Styles, sessionID, dest string) string {
	lines := []string{
		s.Label.Render("console mirroring is on, printing verbose logs") + " " + s.Muted.Render("(session "+sessionID+")"),
	}
	if dest != "" {
		lines = append(lines, s.Label.Render("persistence is on, storing logs to")+" "+dest)
	}
	return strings.Join(lines, "\n")
}

// FormatRecord returns "<name> <site> with <secs> seconds elapsed" followed
// by "<name> <payload>".
func FormatRecord(s Styles, name string, site *callsite.Location, sinceStart float64, v any) string {
	where := unknownSite
	if site != nil {
		where = site.String()
	}
	label := s.Label.Render(name)
	header := fmt.Sprintf("%s %s %s %.2f %s",
		label, where, s.Label.Render("with"), sinceStart, s.Label.Render("seconds elapsed"))
	return header + "\n" + label + " " + FormatPayload(v)
}

// FormatStored returns "<name> Stored to <dest>".
func FormatStored(s Styles, name, dest string) string {
	return s.Label.Render(name) + " Stored to " + dest
}

// FormatPayload renders v as indented JSON, or a description of its type
// when it cannot be serialized.
func FormatPayload(v any) string {
	if val, ok := v.(payload.Value); ok {
		out, err := payload.Marshal(val, "  ")
		if err == nil {
			return string(out)
		}
	}
	out, err := payload.Serialize(v, "  ")
	if err != nil {
		return Describe(v, err)
	}
	return string(out)
}

// Describe is the best-effort rendering used when v cannot be serialized.
func Describe(v any, err error) string {
	desc := fmt.Sprintf("<unserializable %T>", v)
	if err != nil {
		desc = fmt.Sprintf("<unserializable %T: %s>", v, util.TruncateString(err.Error(), 120))
	}
	return desc
}

// Package record defines the log record written for every log call and its
// persisted JSON form.
//
// Logger-owned keys start with [ReservedPrefix] so tools reading a record
// back can tell metadata apart from caller data. The payload always sits
// under [KeyPayload], the last key of the object.
package record

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Iron-Ham/smollog/internal/callsite"
	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/payload"
)

// ReservedPrefix marks keys owned by the logger.
const ReservedPrefix = "_"

// Keys of the persisted record, in the order they are written.
const (
	KeySequence = ReservedPrefix + "sequence"
	KeyLabel    = ReservedPrefix + "label"
	KeyCallSite = ReservedPrefix + "callSite"
	KeyTiming   = ReservedPrefix + "timing"
	KeyPayload  = ReservedPrefix + "payload"
)

// Sub-keys of the timing object.
const (
	KeySinceStart = "sinceStart"
	KeySinceLast  = "sinceLast"
)

// DefaultPadWidth is the number of digits the sequence is padded to in
// record names.
const DefaultPadWidth = 3

// Timing holds elapsed seconds relative to the owning session.
type Timing struct {
	SinceStart float64
	SinceLast  float64
}

// Record is one log event. It is built once by a session and never modified
// afterwards.
type Record struct {
	Sequence uint64
	Label    string
	CallSite *callsite.Location
	Timing   Timing
	// Fields are caller-attached top-level fields, written between the
	// timing and payload keys.
	Fields  []payload.Field
	Payload payload.Value
}

// ValidateFieldKey rejects keys that would collide with logger metadata.
func ValidateFieldKey(key string) error {
	if key == "" {
		return errors.NewValidationError("field name must not be empty").WithField(key)
	}
	if strings.HasPrefix(key, ReservedPrefix) {
		return errors.NewValidationError("field name uses the reserved prefix " + ReservedPrefix).
			WithField(key).
			WithCause(errors.ErrReservedField)
	}
	return nil
}

// Value returns the record as an ordered object.
func (r *Record) Value() payload.Value {
	site := payload.Null()
	if r.CallSite != nil {
		site = payload.Object(
			payload.Field{Key: "file", Value: payload.String(r.CallSite.File)},
			payload.Field{Key: "line", Value: payload.Int(int64(r.CallSite.Line))},
			payload.Field{Key: "column", Value: payload.Int(int64(r.CallSite.Column))},
		)
	}

	fields := make([]payload.Field, 0, 5+len(r.Fields))
	fields = append(fields,
		payload.Field{Key: KeySequence, Value: payload.Uint(r.Sequence)},
		payload.Field{Key: KeyLabel, Value: payload.String(r.Label)},
		payload.Field{Key: KeyCallSite, Value: site},
		payload.Field{Key: KeyTiming, Value: payload.Object(
			payload.Field{Key: KeySinceStart, Value: payload.Number(r.Timing.SinceStart)},
			payload.Field{Key: KeySinceLast, Value: payload.Number(r.Timing.SinceLast)},
		)},
	)
	fields = append(fields, r.Fields...)
	fields = append(fields, payload.Field{Key: KeyPayload, Value: r.Payload})
	return payload.Object(fields...)
}

// Render returns the persisted form: pretty-printed JSON indented by two
// spaces.
func (r *Record) Render() ([]byte, error) {
	return payload.Marshal(r.Value(), "  ")
}

// Name returns "<padded sequence>: <label>".
func (r *Record) Name(padWidth int) string {
	if padWidth <= 0 {
		padWidth = DefaultPadWidth
	}
	return fmt.Sprintf("%0*d: %s", padWidth, r.Sequence, r.Label)
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

// FileName returns the file name the record is persisted under. Path
// separators in the label are replaced so the file stays inside its run
// directory.
func (r *Record) FileName(padWidth int) string {
	return fileNameReplacer.Replace(r.Name(padWidth)) + ".json"
}

// SequenceOf recovers the sequence number from a record name or file name.
func SequenceOf(name string) (uint64, bool) {
	digits, _, ok := strings.Cut(name, ": ")
	if !ok || digits == "" {
		return 0, false
	}
	seq, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// CompareFileNames orders record file names by sequence number, so "1000"
// follows "999" once the count outgrows the pad width. Names without a
// sequence sort after those with one.
func CompareFileNames(a, b string) int {
	sa, okA := SequenceOf(a)
	sb, okB := SequenceOf(b)
	switch {
	case okA && okB:
		if c := cmp.Compare(sa, sb); c != 0 {
			return c
		}
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// Parse reads a persisted record back. Unknown top-level keys without the
// reserved prefix become caller fields; missing metadata keeps its zero
// value.
func Parse(data []byte) (*Record, error) {
	v, err := payload.Parse(data)
	if err != nil {
		return nil, err
	}
	if v.Kind() != payload.KindObject {
		return nil, errors.NewValidationError("record is not a JSON object").WithValue(v.Kind().String())
	}

	r := &Record{Payload: payload.Null()}
	for _, f := range v.Fields() {
		switch f.Key {
		case KeySequence:
			if err := decodeInto(f.Value, &r.Sequence); err != nil {
				return nil, errors.Wrapf(err, "decoding %s", f.Key)
			}
		case KeyLabel:
			if err := decodeInto(f.Value, &r.Label); err != nil {
				return nil, errors.Wrapf(err, "decoding %s", f.Key)
			}
		case KeyCallSite:
			if f.Value.IsNull() {
				continue
			}
			var loc callsite.Location
			if err := decodeInto(f.Value, &loc); err != nil {
				return nil, errors.Wrapf(err, "decoding %s", f.Key)
			}
			r.CallSite = &loc
		case KeyTiming:
			if v, ok := f.Value.Get(KeySinceStart); ok {
				_ = decodeInto(v, &r.Timing.SinceStart)
			}
			if v, ok := f.Value.Get(KeySinceLast); ok {
				_ = decodeInto(v, &r.Timing.SinceLast)
			}
		case KeyPayload:
			r.Payload = f.Value
		default:
			if !strings.HasPrefix(f.Key, ReservedPrefix) {
				r.Fields = append(r.Fields, f)
			}
		}
	}
	return r, nil
}

func decodeInto(v payload.Value, dst any) error {
	return json.Unmarshal(v.AppendJSON(nil), dst)
}

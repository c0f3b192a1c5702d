package payload

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Pair is one member of an ordered payload object.
type Pair struct {
	Key   string
	Value any
}

// Pairs is an object payload whose keys are rendered in slice order. Maps
// have no order, so callers that care about column order in exports log
// Pairs instead.
type Pairs []Pair

var (
	valueType         = reflect.TypeFor[Value]()
	pairsType         = reflect.TypeFor[Pairs]()
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	errorType         = reflect.TypeFor[error]()
)

// Serialize renders v as JSON text, indenting with indent when it is not
// empty. It is Normalize followed by Marshal.
func Serialize(v any, indent string) ([]byte, error) {
	val, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return Marshal(val, indent)
}

// Normalize converts an arbitrary Go value into a Value.
//
// Reference cycles are cut by identity: the first time a pointer, map or
// slice is reached it is converted in full, and every later encounter of the
// same reference within this call is left out. An object member that is left
// out disappears; an array element becomes null. The set of seen references
// lives only for the duration of the call.
//
// Conversion follows encoding/json where the two overlap: json.Marshaler and
// encoding.TextMarshaler are honored, struct fields use their json tags,
// []byte becomes base64 and map keys are sorted. Values JSON cannot express
// follow JSON.stringify instead of failing: NaN and infinities become null,
// and funcs, channels and complex numbers are dropped. Errors render as their
// message. The only failure is a Marshaler that returns an error or invalid
// JSON.
func Normalize(v any) (Value, error) {
	n := &normalizer{seen: make(map[identity]struct{})}
	out, keep, err := n.value(reflect.ValueOf(v))
	if err != nil {
		return Value{}, err
	}
	if !keep {
		return Null(), nil
	}
	return out, nil
}

type identity struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type normalizer struct {
	seen map[identity]struct{}
}

// value converts rv. keep is false when the value must be left out of its
// container.
func (n *normalizer) value(rv reflect.Value) (out Value, keep bool, err error) {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null(), true, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return Null(), true, nil
	}

	// Pairs are slices too; their identity is recorded before dispatch so a
	// Pairs that contains itself terminates like any other cycle.
	if id, ok := identityOf(rv); ok {
		if _, dup := n.seen[id]; dup {
			return Value{}, false, nil
		}
		n.seen[id] = struct{}{}
	}

	if rv.CanInterface() {
		switch rv.Type() {
		case valueType:
			return rv.Interface().(Value), true, nil
		case pairsType:
			return n.pairs(rv.Interface().(Pairs))
		}
	}

	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null(), true, nil
	}

	if out, handled, err := n.marshaler(rv); handled || err != nil {
		return out, true, err
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), true, nil
	case reflect.Float32:
		return number(rv.Float(), 32), true, nil
	case reflect.Float64:
		return number(rv.Float(), 64), true, nil
	case reflect.String:
		return String(rv.String()), true, nil
	case reflect.Pointer:
		return n.value(rv.Elem())
	case reflect.Map:
		return n.mapValue(rv)
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), true, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return String(base64.StdEncoding.EncodeToString(rv.Bytes())), true, nil
		}
		return n.list(rv)
	case reflect.Array:
		return n.list(rv)
	case reflect.Struct:
		var fields []Field
		if err := n.structFields(&fields, rv); err != nil {
			return Value{}, false, err
		}
		return Object(fields...), true, nil
	default:
		// Chan, Func, Complex, UnsafePointer.
		return Value{}, false, nil
	}
}

// marshaler handles types that describe their own encoding.
func (n *normalizer) marshaler(rv reflect.Value) (Value, bool, error) {
	iv, ok := interfaceOf(rv)
	if !ok {
		return Value{}, false, nil
	}

	switch m := iv.(type) {
	case json.Marshaler:
		b, err := m.MarshalJSON()
		if err != nil {
			return Value{}, true, fmt.Errorf("payload: %s MarshalJSON: %w", rv.Type(), err)
		}
		v, err := Parse(b)
		if err != nil {
			return Value{}, true, fmt.Errorf("payload: %s MarshalJSON: %w", rv.Type(), err)
		}
		return v, true, nil
	case error:
		return String(m.Error()), true, nil
	case encoding.TextMarshaler:
		b, err := m.MarshalText()
		if err != nil {
			return Value{}, true, fmt.Errorf("payload: %s MarshalText: %w", rv.Type(), err)
		}
		return String(string(b)), true, nil
	}
	return Value{}, false, nil
}

// interfaceOf returns rv (or its address) as an interface value when its
// type implements one of the self-encoding interfaces.
func interfaceOf(rv reflect.Value) (any, bool) {
	t := rv.Type()
	implements := func(t reflect.Type) bool {
		return t.Implements(marshalerType) || t.Implements(errorType) || t.Implements(textMarshalerType)
	}
	if implements(t) && rv.CanInterface() {
		return rv.Interface(), true
	}
	if rv.Kind() != reflect.Pointer && rv.CanAddr() && implements(reflect.PointerTo(t)) {
		if addr := rv.Addr(); addr.CanInterface() {
			return addr.Interface(), true
		}
	}
	return nil, false
}

// identityOf returns the reference identity of composite values. Scalars,
// empty slices and zero-size elements share addresses and are not tracked.
func identityOf(rv reflect.Value) (identity, bool) {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() || rv.Type().Elem().Size() == 0 {
			return identity{}, false
		}
		switch rv.Type().Elem().Kind() {
		case reflect.Struct, reflect.Array, reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
			return identity{ptr: rv.Pointer(), typ: rv.Type()}, true
		}
	case reflect.Map:
		if !rv.IsNil() {
			return identity{ptr: rv.Pointer(), typ: rv.Type()}, true
		}
	case reflect.Slice:
		if !rv.IsNil() && rv.Len() > 0 && rv.Type().Elem().Size() > 0 {
			return identity{ptr: rv.Pointer(), typ: rv.Type(), len: rv.Len()}, true
		}
	}
	return identity{}, false
}

func (n *normalizer) list(rv reflect.Value) (Value, bool, error) {
	items := make([]Value, rv.Len())
	for i := range items {
		v, keep, err := n.value(rv.Index(i))
		if err != nil {
			return Value{}, false, err
		}
		if !keep {
			v = Null()
		}
		items[i] = v
	}
	return Value{kind: KindArray, items: items}, true, nil
}

func (n *normalizer) mapValue(rv reflect.Value) (Value, bool, error) {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return Value{}, false, err
		}
		entries = append(entries, entry{key: key, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	fields := make([]Field, 0, len(entries))
	for _, e := range entries {
		v, keep, err := n.value(e.val)
		if err != nil {
			return Value{}, false, err
		}
		if keep {
			fields = append(fields, Field{Key: e.key, Value: v})
		}
	}
	return Value{kind: KindObject, fields: fields}, true, nil
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if k.Kind() == reflect.Pointer && k.IsNil() {
				return "", nil
			}
			b, err := tm.MarshalText()
			if err != nil {
				return "", fmt.Errorf("payload: %s MarshalText: %w", k.Type(), err)
			}
			return string(b), nil
		}
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return fmt.Sprint(k), nil
}

func (n *normalizer) pairs(p Pairs) (Value, bool, error) {
	fields := make([]Field, 0, len(p))
	for _, pair := range p {
		v, keep, err := n.value(reflect.ValueOf(pair.Value))
		if err != nil {
			return Value{}, false, err
		}
		if keep {
			fields = append(fields, Field{Key: pair.Key, Value: v})
		}
	}
	return Value{kind: KindObject, fields: fields}, true, nil
}

// structFields appends the exported fields of rv, inlining untagged
// embedded structs the way encoding/json does.
func (n *normalizer) structFields(dst *[]Field, rv reflect.Value) error {
	t := rv.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				if err := n.structFields(dst, fv); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}

		v, keep, err := n.value(fv)
		if err != nil {
			return err
		}
		if keep {
			*dst = append(*dst, Field{Key: name, Value: v})
		}
	}
	return nil
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

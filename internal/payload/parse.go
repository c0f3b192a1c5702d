package payload

import (
	"fmt"

	"github.com/valyala/fastjson"
)

var parserPool fastjson.ParserPool

// Parse decodes JSON text into a Value. Object keys keep the order in which
// they appear in data.
func Parse(data []byte) (Value, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return fromFastJSON(v), nil
}

// fromFastJSON copies v out of the parser's arena.
func fromFastJSON(v *fastjson.Value) Value {
	switch v.Type() {
	case fastjson.TypeObject:
		o := v.GetObject()
		fields := make([]Field, 0, o.Len())
		o.Visit(func(key []byte, fv *fastjson.Value) {
			fields = append(fields, Field{Key: string(key), Value: fromFastJSON(fv)})
		})
		return Value{kind: KindObject, fields: fields}
	case fastjson.TypeArray:
		arr := v.GetArray()
		items := make([]Value, len(arr))
		for i, item := range arr {
			items[i] = fromFastJSON(item)
		}
		return Value{kind: KindArray, items: items}
	case fastjson.TypeString:
		return String(string(v.GetStringBytes()))
	default:
		return Value{kind: KindScalar, raw: v.MarshalTo(nil)}
	}
}

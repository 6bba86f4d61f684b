package sink

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

// frameDecoder reassembles delimiter-separated JSON frames from a
// connection's byte stream. It owns the partial-byte buffer for bytes
// received but not yet delimiter-terminated. A decoder belongs to
// exactly one connection and is only ever driven by the reactor.
type frameDecoder struct {
	delim   []byte
	partial []byte
	parser  fastjson.Parser
}

func newFrameDecoder(delim []byte) *frameDecoder {
	return &frameDecoder{delim: delim}
}

// consume appends data to the buffered partial bytes, splits on the
// delimiter and emits one Record per complete frame in encounter
// order. The trailing segment (empty when data ends exactly on a
// delimiter) becomes the new partial buffer. The first malformed frame
// returns an error wrapping ErrDecode; frames emitted earlier in the
// same call stay emitted.
func (d *frameDecoder) consume(data []byte, emit func(Record)) error {
	buf := append(d.partial, data...)
	for {
		i := bytes.Index(buf, d.delim)
		if i < 0 {
			break
		}
		frame := buf[:i]
		buf = buf[i+len(d.delim):]

		rec, err := d.decodeFrame(frame)
		if err != nil {
			d.partial = nil
			return err
		}
		emit(rec)
	}
	d.partial = append(d.partial[:0], buf...)
	return nil
}

// decodeFrame parses one complete frame: UTF-8 text holding a single
// JSON object.
func (d *frameDecoder) decodeFrame(frame []byte) (Record, error) {
	if !utf8.Valid(frame) {
		return nil, fmt.Errorf("%w: frame is not valid UTF-8", ErrDecode)
	}
	v, err := d.parser.ParseBytes(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("%w: top-level value is %s, want object", ErrDecode, v.Type())
	}

	rec := make(Record, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		rec[string(key)] = valueToAny(v)
	})
	return rec, nil
}

// valueToAny converts a parsed fastjson value into the plain Go shape
// encoding/json would produce: map[string]any, []any, string, float64,
// bool and nil. The fastjson value is only valid until the parser is
// reused, so the conversion copies everything out.
func valueToAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		m := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, v *fastjson.Value) {
			m[string(key)] = valueToAny(v)
		})
		return m
	case fastjson.TypeArray:
		arr, _ := v.Array()
		s := make([]any, 0, len(arr))
		for _, item := range arr {
			s = append(s, valueToAny(item))
		}
		return s
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		f, _ := v.Float64()
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}

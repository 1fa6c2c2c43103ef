package indexing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

// Type tags. Keys of different types order numbers < dates < strings < binary < arrays.
const (
	tagNumber byte = 0x20
	tagTime   byte = 0x30
	tagString byte = 0x40
	tagBinary byte = 0x48
	tagArray  byte = 0x50

	escape     byte = 0x00
	escapedNul byte = 0xFF
	terminator byte = 0x01
)

// ErrInvalidKey is returned for values that cannot be keys: booleans, nil, maps and NaN
var ErrInvalidKey = fmt.Errorf("invalid key")

// EncodeKey encodes a key so that byte order matches key order. Encodings are self delimiting:
// no encoded key is a prefix of another, so an encoded key can be followed by more encoded keys.
func EncodeKey(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidKey reports whether value can be encoded as a key
func ValidKey(value any) bool {
	_, err := EncodeKey(value)
	return err == nil
}

func encode(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil, bool:
		return ErrInvalidKey
	case string:
		buf.WriteByte(tagString)
		writeEscaped(buf, []byte(v))
		return nil
	case []byte:
		buf.WriteByte(tagBinary)
		writeEscaped(buf, v)
		return nil
	case time.Time:
		buf.WriteByte(tagTime)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.UnixNano())^(1<<63))
		buf.Write(b[:])
		return nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f := cast.ToFloat64(v)
		if math.IsNaN(f) {
			return ErrInvalidKey
		}
		buf.WriteByte(tagNumber)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], sortableFloat(f))
		buf.Write(b[:])
		return nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return encode(buf, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encode(buf, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return encode(buf, rv.Float())
	case reflect.String:
		return encode(buf, rv.String())
	case reflect.Slice, reflect.Array:
	default:
		return ErrInvalidKey
	}
	buf.WriteByte(tagArray)
	for i := 0; i < rv.Len(); i++ {
		if err := encode(buf, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	buf.WriteByte(escape)
	return nil
}

func sortableFloat(f float64) uint64 {
	if f == 0 {
		// -0 and 0 are the same key
		f = 0
	}
	bits := math.Float64bits(f)
	if bits&(1<<63) == 0 {
		return bits ^ (1 << 63)
	}
	return ^bits
}

func unsortableFloat(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits ^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}

func writeEscaped(buf *bytes.Buffer, b []byte) {
	for _, c := range b {
		buf.WriteByte(c)
		if c == escape {
			buf.WriteByte(escapedNul)
		}
	}
	buf.WriteByte(escape)
	buf.WriteByte(terminator)
}

// DecodeKey decodes the first key in b and returns the remaining bytes.
// Numbers decode as float64, arrays as []any.
func DecodeKey(b []byte) (any, []byte, error) {
	if len(b) == 0 {
		return nil, nil, ErrInvalidKey
	}
	switch b[0] {
	case tagNumber:
		if len(b) < 9 {
			return nil, nil, ErrInvalidKey
		}
		return unsortableFloat(binary.BigEndian.Uint64(b[1:9])), b[9:], nil
	case tagTime:
		if len(b) < 9 {
			return nil, nil, ErrInvalidKey
		}
		return time.Unix(0, int64(binary.BigEndian.Uint64(b[1:9])^(1<<63))), b[9:], nil
	case tagString, tagBinary:
		raw, rest, err := readEscaped(b[1:])
		if err != nil {
			return nil, nil, err
		}
		if b[0] == tagString {
			return string(raw), rest, nil
		}
		return raw, rest, nil
	case tagArray:
		rest := b[1:]
		arr := []any{}
		for {
			if len(rest) == 0 {
				return nil, nil, ErrInvalidKey
			}
			if rest[0] == escape {
				return arr, rest[1:], nil
			}
			var (
				elem any
				err  error
			)
			elem, rest, err = DecodeKey(rest)
			if err != nil {
				return nil, nil, err
			}
			arr = append(arr, elem)
		}
	}
	return nil, nil, ErrInvalidKey
}

func readEscaped(b []byte) ([]byte, []byte, error) {
	var out []byte
	for i := 0; i < len(b); i++ {
		if b[i] != escape {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			return nil, nil, ErrInvalidKey
		}
		switch b[i+1] {
		case escapedNul:
			out = append(out, escape)
			i++
		case terminator:
			return out, b[i+2:], nil
		default:
			return nil, nil, ErrInvalidKey
		}
	}
	return nil, nil, ErrInvalidKey
}

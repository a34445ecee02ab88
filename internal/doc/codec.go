package doc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/tidwall/jsonc"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Decode parses data into a document value. Comments and trailing commas
// are tolerated.
func Decode(data []byte) (any, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("doc: unexpected %v after top-level value", tok)
	}
	return v, nil
}

// DecodeLoose is Decode plus one level of unwrapping for documents that were
// JSON-encoded twice: when the top-level value is a string that itself
// parses, the inner value is returned. A string that does not parse is
// returned as is.
func DecodeLoose(data []byte) (any, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		if inner, err := Decode([]byte(s)); err == nil {
			return inner, nil
		}
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("doc: object key is %T", kt)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("doc: unexpected delimiter %q", rune(t))
		}
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("doc: bad number %q: %w", t, err)
		}
		return f, nil
	case string, bool, nil:
		return t, nil
	default:
		return nil, fmt.Errorf("doc: unexpected token %T", tok)
	}
}

// Encode serializes v compactly.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, "", ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeIndent serializes v with two-space indentation and no trailing
// newline. This is the on-disk form of every document the tools write.
func EncodeIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any, prefix, indent string) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case float64:
		return encodeNumber(buf, t)
	case string:
		return encodeString(buf, t)
	case []any:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		inner := prefix + indent
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, inner, indent)
			if err := encodeValue(buf, item, inner, indent); err != nil {
				return err
			}
		}
		newline(buf, prefix, indent)
		buf.WriteByte(']')
	case *Object:
		if t.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		inner := prefix + indent
		buf.WriteByte('{')
		for i, key := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, inner, indent)
			if err := encodeString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if err := encodeValue(buf, t.vals[key], inner, indent); err != nil {
				return err
			}
		}
		newline(buf, prefix, indent)
		buf.WriteByte('}')
	default:
		converted, err := fromGo(v)
		if err != nil {
			return err
		}
		return encodeValue(buf, converted, prefix, indent)
	}
	return nil
}

func newline(buf *bytes.Buffer, prefix, indent string) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(prefix)
}

// encodeNumber writes non-finite values as null, the way browsers serialize
// them.
func encodeNumber(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		buf.WriteString("null")
		return nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

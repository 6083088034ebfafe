package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// keyDomain separates result-cache hashes from any other SHA-256 use; the
// version suffix changes whenever the encoding below does.
const keyDomain = "learner-analytics/result/v1"

// Args are the inputs that determine a cached result.
type Args map[string]any

// Key derives the cache key for op and args: a SHA-256 over the domain, a
// 0x00 separator and the canonical JSON of {"args": args, "op": op}.
// Canonical JSON sorts object keys, NFC-normalises strings and renders
// times as dates, so equal inputs always hash equally.
func Key(op string, args Args) (string, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, map[string]any{"op": op, "args": map[string]any(args)}); err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(keyDomain))
	h.Write([]byte{0x00})
	h.Write(buf.Bytes())
	return "analytics:" + op + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case string:
		return writeString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
		return nil
	case int:
		buf.WriteString(strconv.Itoa(val))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float64:
		buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		return nil
	case time.Time:
		return writeString(buf, val.UTC().Format(time.DateOnly))
	case *time.Time:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		return writeString(buf, val.UTC().Format(time.DateOnly))
	case map[string]any:
		return writeObject(buf, val)
	case encoding.TextMarshaler:
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Pointer && rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		text, err := val.MarshalText()
		if err != nil {
			return err
		}
		return writeString(buf, string(text))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		buf.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(rv.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
		return nil
	case reflect.String:
		return writeString(buf, rv.String())
	case reflect.Pointer:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeCanonical(buf, rv.Elem().Interface())
	}
	return fmt.Errorf("unsupported cache argument type %T", v)
}

func writeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

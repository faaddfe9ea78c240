// Package export reads raw activity exports and flattens them into records.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// WrapperKey is the key under which some exports nest the activity list
const WrapperKey = "summarizedActivitiesExport"

// ErrUnrecognizedFormat is returned when the export's top-level shape is not understood
var ErrUnrecognizedFormat = errors.New("unrecognized summarized activities format")

// Record is one raw activity as decoded from JSON
type Record = map[string]any

// Export is a decoded activity list. Columns holds every record key once, in
// order of first appearance, with each record read in its source key order.
type Export struct {
	Records []Record
	Columns []string
}

// object is a decoded JSON object that remembers its key order
type object struct {
	keys []string
	vals map[string]any
}

// asObject accepts decoded objects and plain maps. Plain maps carry no order,
// so their keys are taken lexically.
func asObject(v any) (*object, bool) {
	switch o := v.(type) {
	case *object:
		return o, true
	case map[string]any:
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return &object{keys: keys, vals: o}, true
	}
	return nil, false
}

// Extract returns the flat activity records held by decoded export content.
//
// A list whose first element is an object carrying WrapperKey yields that value,
// any other list is taken as-is, an object carrying WrapperKey yields that value.
// Everything else is ErrUnrecognizedFormat.
func Extract(raw any) ([]Record, error) {
	ex, err := extract(raw)
	if err != nil {
		return nil, err
	}
	return ex.Records, nil
}

func extract(raw any) (*Export, error) {
	var list any
	switch v := raw.(type) {
	case []any:
		list = v
		if len(v) > 0 {
			if first, ok := asObject(v[0]); ok {
				if wrapped, ok := first.vals[WrapperKey]; ok {
					list = wrapped
				}
			}
		}
	default:
		obj, ok := asObject(raw)
		if !ok {
			return nil, fmt.Errorf("%w: top-level %s", ErrUnrecognizedFormat, describe(raw))
		}
		wrapped, ok := obj.vals[WrapperKey]
		if !ok {
			return nil, fmt.Errorf("%w: object without %q key", ErrUnrecognizedFormat, WrapperKey)
		}
		list = wrapped
	}

	items, ok := list.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: activity list is %s", ErrUnrecognizedFormat, describe(list))
	}

	ex := &Export{Records: make([]Record, len(items))}
	seen := map[string]bool{}
	for i, item := range items {
		obj, ok := asObject(item)
		if !ok {
			return nil, fmt.Errorf("%w: record %d is %s", ErrUnrecognizedFormat, i, describe(item))
		}
		ex.Records[i] = plain(obj).(map[string]any)
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				ex.Columns = append(ex.Columns, k)
			}
		}
	}
	return ex, nil
}

// Decode parses an export document into plain maps, slices and scalars.
// Numbers become int64 when integral and float64 otherwise, so identifiers
// survive without float rounding.
func Decode(r io.Reader) (any, error) {
	raw, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	return plain(raw), nil
}

// DecodeExport decodes an export document and extracts its records, keeping key order
func DecodeExport(data []byte) (*Export, error) {
	raw, err := decodeDocument(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return extract(raw)
}

// DecodeRecords decodes an export document and extracts its records
func DecodeRecords(data []byte) ([]Record, error) {
	ex, err := DecodeExport(data)
	if err != nil {
		return nil, err
	}
	return ex.Records, nil
}

func decodeDocument(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	raw, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decoding export JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decoding export JSON: trailing data after top-level value")
	}
	return raw, nil
}

// decodeValue reads one JSON value token by token. Objects become *object so
// their key order survives; a repeated key keeps its first position and last value.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			obj := &object{vals: map[string]any{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.vals[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.vals[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected %q", rune(v))
	case json.Number:
		return number(v), nil
	}
	return tok, nil
}

func number(n json.Number) any {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return f
	}
	return string(n)
}

// plain converts ordered objects to maps, recursively. Caller-supplied maps
// and slices are copied, never modified.
func plain(v any) any {
	switch val := v.(type) {
	case *object:
		m := make(map[string]any, len(val.vals))
		for k, item := range val.vals {
			m[k] = plain(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = plain(item)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case map[string]any, *object:
		return "an object"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int64, float64, json.Number:
		return "a number"
	}
	return fmt.Sprintf("%T", v)
}

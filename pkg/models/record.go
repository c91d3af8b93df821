package models

import (
	"bytes"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Well-known fields of an event record.
const (
	FieldEventType = "event_type"
	FieldTimestamp = "timestamp"
)

// Record is an ordered mapping from field name to value. A value is nil, a scalar
// (string, bool, json.Number or other Go numeric), a nested *Record or []interface{}.
// Field order is kept through decode and encode so pass-through fields keep their shape.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: map[string]interface{}{}}
}

// Set adds or replaces a field. A new field is appended to the end.
func (x *Record) Set(key string, v interface{}) {
	if x.values == nil {
		x.values = map[string]interface{}{}
	}
	if _, ok := x.values[key]; !ok {
		x.keys = append(x.keys, key)
	}
	x.values[key] = v
}

// Get returns value of the field and existence of the field.
func (x *Record) Get(key string) (interface{}, bool) {
	if x == nil {
		return nil, false
	}
	v, ok := x.values[key]
	return v, ok
}

// Has returns true if the field exists even if the value is null.
func (x *Record) Has(key string) bool {
	_, ok := x.Get(key)
	return ok
}

// NotNull returns true only if the field exists and the value is not null.
func (x *Record) NotNull(key string) bool {
	v, ok := x.Get(key)
	return ok && v != nil
}

// Delete removes a field. Nothing happens if the field does not exist.
func (x *Record) Delete(key string) {
	if _, ok := x.values[key]; !ok {
		return
	}
	delete(x.values, key)
	for i := range x.keys {
		if x.keys[i] == key {
			x.keys = append(x.keys[:i:i], x.keys[i+1:]...)
			break
		}
	}
}

// Keys returns field names in order.
func (x *Record) Keys() []string {
	if x == nil {
		return nil
	}
	keys := make([]string, len(x.keys))
	copy(keys, x.keys)
	return keys
}

// Len returns number of fields.
func (x *Record) Len() int {
	if x == nil {
		return 0
	}
	return len(x.keys)
}

// Copy returns a deep copy of the record. Nested records and slices are copied as well.
func (x *Record) Copy() *Record {
	out := NewRecord()
	if x == nil {
		return out
	}
	for _, k := range x.keys {
		out.Set(k, copyValue(x.values[k]))
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Record:
		return t.Copy()
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i := range t {
			arr[i] = copyValue(t[i])
		}
		return arr
	default:
		return v
	}
}

// EventType returns value of event_type if it is a non-empty string.
func (x *Record) EventType() (string, bool) {
	v, ok := x.Get(FieldEventType)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Timestamp returns raw value of timestamp field.
func (x *Record) Timestamp() (interface{}, bool) {
	v, ok := x.Get(FieldTimestamp)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Equal compares fields, order and values. Numbers are compared by their text form.
func (x *Record) Equal(y *Record) bool {
	a, err1 := x.MarshalJSON()
	b, err2 := y.MarshalJSON()
	return err1 == nil && err2 == nil && bytes.Equal(a, b)
}

// MarshalJSON encodes the record with field order kept.
func (x *Record) MarshalJSON() ([]byte, error) {
	if x == nil {
		return []byte("null"), nil
	}

	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range x.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, errors.Wrapf(err, "Fail to marshal key: %s", k)
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(x.values[k])
		if err != nil {
			return nil, errors.Wrapf(err, "Fail to marshal value of %s", k)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object with field order kept.
func (x *Record) UnmarshalJSON(data []byte) error {
	rec, err := DecodeRecord(data)
	if err != nil {
		return err
	}
	*x = *rec
	return nil
}

// Plain converts the record to map[string]interface{} with json.Number converted to
// int64 or float64. It is for libraries that do not know *Record.
func (x *Record) Plain() map[string]interface{} {
	out := make(map[string]interface{}, x.Len())
	if x == nil {
		return out
	}
	for _, k := range x.keys {
		out[k] = plainValue(x.values[k])
	}
	return out
}

func plainValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Record:
		return t.Plain()
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i := range t {
			arr[i] = plainValue(t[i])
		}
		return arr
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// ToFloat converts a numeric value to float64. Strings are not converted.
func ToFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// ToNumber converts a float back to json.Number keeping integers without fraction.
func ToNumber(f float64) json.Number {
	if f == float64(int64(f)) {
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// DecodeRecord decodes one JSON object.
func DecodeRecord(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(*Record)
	if !ok {
		return nil, errors.Errorf("JSON value is not an object: %T", v)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("Extra data after JSON object")
	}

	return rec, nil
}

// DecodeRecords decodes a JSON array of objects, a single object or newline delimited
// objects from r.
func DecodeRecords(r io.Reader) ([]*Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []*Record
	for seq := 0; ; seq++ {
		v, err := decodeValue(dec)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "Fail to decode JSON document #%d", seq)
		}

		switch t := v.(type) {
		case *Record:
			records = append(records, t)
		case []interface{}:
			for i := range t {
				rec, ok := t[i].(*Record)
				if !ok {
					return nil, errors.Errorf("Element %d of JSON array is not an object: %T", i, t[i])
				}
				records = append(records, rec)
			}
		default:
			return nil, errors.Errorf("JSON document #%d is not an object: %T", seq, v)
		}
	}

	return records, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		rec := NewRecord()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, unexpected(err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, errors.Errorf("Invalid object key: %v", keyTok)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, unexpected(err)
			}
			rec.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpected(err)
		}
		return rec, nil

	case '[':
		arr := []interface{}{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, unexpected(err)
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpected(err)
		}
		return arr, nil

	default:
		return nil, errors.Errorf("Unexpected delimiter: %v", delim)
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

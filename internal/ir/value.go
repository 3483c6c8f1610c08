package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// IRValue is the sealed set of values allowed in arguments and results:
// IRNull, IRString, IRInt, IRBool, IRArray and IRObject. There is no float.
type IRValue interface {
	irValue()
}

// IRNull is JSON null. It may be decoded from stored records but is rejected
// by canonical marshaling and by ParseValue.
type IRNull struct{}

// IRString is a string value.
type IRString string

// IRInt is an integer value.
type IRInt int64

// IRBool is a boolean value.
type IRBool bool

// IRArray is an ordered list of values.
type IRArray []IRValue

// IRObject maps keys to values. Iterate with SortedKeys for determinism.
type IRObject map[string]IRValue

func (IRNull) irValue()   {}
func (IRString) irValue() {}
func (IRInt) irValue()    {}
func (IRBool) irValue()   {}
func (IRArray) irValue()  {}
func (IRObject) irValue() {}

// MarshalJSON implements json.Marshaler.
func (IRNull) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// IRPair is a key/value pair for NewObject.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is shorthand for IRPair.
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewObject builds an object from pairs. Later pairs win on duplicate keys.
func NewObject(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Strings converts a string slice to an IRArray.
func Strings(ss []string) IRArray {
	arr := make(IRArray, len(ss))
	for i, s := range ss {
		arr[i] = IRString(s)
	}
	return arr
}

// Ints converts an int64 slice to an IRArray.
func Ints(ns []int64) IRArray {
	arr := make(IRArray, len(ns))
	for i, n := range ns {
		arr[i] = IRInt(n)
	}
	return arr
}

// SortedKeys returns the keys in RFC 8785 order (UTF-16 code units, which
// differs from Go's byte-wise string order outside the BMP).
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Clone returns a deep copy of the object.
func (obj IRObject) Clone() IRObject {
	if obj == nil {
		return nil
	}
	cp := make(IRObject, len(obj))
	for k, v := range obj {
		cp[k] = cloneValue(v)
	}
	return cp
}

func cloneValue(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		return val.Clone()
	case IRArray:
		cp := make(IRArray, len(val))
		for i, e := range val {
			cp[i] = cloneValue(e)
		}
		return cp
	}
	return v
}

// MarshalJSON writes the object with sorted keys. Use MarshalCanonical for
// anything that is hashed.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalValue writes any IRValue as JSON.
func MarshalValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRBool:
		return json.Marshal(bool(val))
	case IRObject:
		return val.MarshalJSON()
	case IRArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := MarshalValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown IRValue type %T", v)
}

// UnmarshalJSON implements json.Unmarshaler. Null members decode to IRNull so
// stored records round-trip; floats are rejected.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := decode(data, true)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	v, err := decode(data, true)
	if err != nil {
		return err
	}
	a, ok := v.(IRArray)
	if !ok {
		return fmt.Errorf("expected JSON array, got %T", v)
	}
	*arr = a
	return nil
}

// ParseValue decodes external JSON strictly: null and floats are rejected.
func ParseValue(data []byte) (IRValue, error) {
	return decode(data, false)
}

// ParseObject decodes an external JSON object strictly.
func ParseObject(data []byte) (IRObject, error) {
	v, err := ParseValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return obj, nil
}

// Encode converts a JSON-tagged Go value (typically a ledger record) into an
// IRObject by way of encoding/json.
func Encode(v any) (IRObject, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return obj, nil
}

// decodeObject is ParseObject that tolerates null members (omitted pointers
// render as null in some records) by dropping them.
func decodeObject(data []byte) (IRObject, error) {
	v, err := decode(data, true)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return dropNulls(obj), nil
}

func dropNulls(obj IRObject) IRObject {
	for k, v := range obj {
		switch val := v.(type) {
		case IRNull:
			delete(obj, k)
		case IRObject:
			obj[k] = dropNulls(val)
		case IRArray:
			dropArrayNulls(val)
		}
	}
	return obj
}

// dropArrayNulls cleans objects nested in arrays. Null elements themselves
// are kept; positions matter.
func dropArrayNulls(arr IRArray) {
	for _, e := range arr {
		switch val := e.(type) {
		case IRObject:
			dropNulls(val)
		case IRArray:
			dropArrayNulls(val)
		}
	}
}

var errNull = errors.New("null is not allowed")

func decode(data []byte, allowNull bool) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return fromRaw(raw, allowNull)
}

func fromRaw(v any, allowNull bool) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		if allowNull {
			return IRNull{}, nil
		}
		return nil, errNull
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		s := val.String()
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not allowed: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, e := range val {
			ev, err := fromRaw(e, allowNull)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, e := range val {
			ev, err := fromRaw(e, allowNull)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unsupported JSON type %T", v)
}

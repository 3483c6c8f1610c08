package ir

import "fmt"

// FieldError reports a missing or mistyped argument.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Int returns the required integer argument key.
func (obj IRObject) Int(key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fieldErr(key, "required")
	}
	n, ok := v.(IRInt)
	if !ok {
		return 0, fieldErr(key, "must be an integer, got %T", v)
	}
	return int64(n), nil
}

// OptInt returns the integer argument key, or def if absent.
func (obj IRObject) OptInt(key string, def int64) (int64, error) {
	if _, ok := obj[key]; !ok {
		return def, nil
	}
	return obj.Int(key)
}

// Text returns the required string argument key.
func (obj IRObject) Text(key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fieldErr(key, "required")
	}
	s, ok := v.(IRString)
	if !ok {
		return "", fieldErr(key, "must be a string, got %T", v)
	}
	return string(s), nil
}

// OptText returns the string argument key, or def if absent.
func (obj IRObject) OptText(key, def string) (string, error) {
	if _, ok := obj[key]; !ok {
		return def, nil
	}
	return obj.Text(key)
}

// OptBool returns the boolean argument key, or false if absent.
func (obj IRObject) OptBool(key string) (bool, error) {
	v, ok := obj[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(IRBool)
	if !ok {
		return false, fieldErr(key, "must be a boolean, got %T", v)
	}
	return bool(b), nil
}

// StringList returns the string-array argument key. An absent key yields an
// empty list.
func (obj IRObject) StringList(key string) ([]string, error) {
	v, ok := obj[key]
	if !ok {
		return []string{}, nil
	}
	arr, ok := v.(IRArray)
	if !ok {
		return nil, fieldErr(key, "must be an array, got %T", v)
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(IRString)
		if !ok {
			return nil, fieldErr(fmt.Sprintf("%s[%d]", key, i), "must be a string, got %T", e)
		}
		out[i] = string(s)
	}
	return out, nil
}

// IntList returns the required integer-array argument key.
func (obj IRObject) IntList(key string) ([]int64, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fieldErr(key, "required")
	}
	arr, ok := v.(IRArray)
	if !ok {
		return nil, fieldErr(key, "must be an array, got %T", v)
	}
	out := make([]int64, len(arr))
	for i, e := range arr {
		n, ok := e.(IRInt)
		if !ok {
			return nil, fieldErr(fmt.Sprintf("%s[%d]", key, i), "must be an integer, got %T", e)
		}
		out[i] = int64(n)
	}
	return out, nil
}

// Object returns the nested object argument key, or an empty object if absent.
func (obj IRObject) Object(key string) (IRObject, error) {
	v, ok := obj[key]
	if !ok {
		return IRObject{}, nil
	}
	o, ok := v.(IRObject)
	if !ok {
		return nil, fieldErr(key, "must be an object, got %T", v)
	}
	return o, nil
}

// Lookup resolves a dotted path such as "preparation.weed_removal".
func (obj IRObject) Lookup(path []string) (IRValue, bool) {
	var cur IRValue = obj
	for _, p := range path {
		o, ok := cur.(IRObject)
		if !ok {
			return nil, false
		}
		cur, ok = o[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

package sqldb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the explicit type tag of a bound parameter
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindNull
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Integer"
	case KindBool:
		return "Boolean"
	case KindNull:
		return "Null"
	case KindString:
		return "String"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// trimCutset matches what is stripped from both ends of string values:
// space, tab, newline, carriage return, NUL, vertical tab
const trimCutset = " \t\n\r\x00\x0B"

// Param is a value bound to a named placeholder
type Param struct {
	Name  string // without the leading ':'
	Value any    // int64, bool, string or nil, matching Kind
	Kind  Kind
}

// NewParam infers the Kind of value: integer, bool, nil, otherwise string
func NewParam(name string, value any) (Param, error) {
	return NewTypedParam(name, value, InferKind(value))
}

// NewTypedParam coerces value to kind. Only string values are trimmed.
func NewTypedParam(name string, value any, kind Kind) (Param, error) {
	v, err := Coerce(value, kind)
	if err != nil {
		return Param{}, fmt.Errorf("parameter :%s: %w", ParamName(name), err)
	}
	return Param{Name: ParamName(name), Value: v, Kind: kind}, nil
}

// ParamName strips the optional leading ':' from a placeholder name
func ParamName(name string) string {
	return strings.TrimPrefix(name, ":")
}

func InferKind(value any) Kind {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case bool:
		return KindBool
	case nil:
		return KindNull
	default:
		return KindString
	}
}

// Coerce converts value into the driver value for kind.
// A nil value is always bound as SQL NULL.
func Coerce(value any, kind Kind) (any, error) {
	if value == nil || kind == KindNull {
		return nil, nil
	}
	switch kind {
	case KindInt:
		return toInt64(value)
	case KindBool:
		return toBool(value)
	case KindString:
		return strings.Trim(toString(value), trimCutset), nil
	}
	return nil, fmt.Errorf("unknown kind %s", kind)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > 1<<63-1 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.ParseInt(strings.Trim(v, trimCutset), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot bind %q as %s", v, KindInt)
		}
		return i, nil
	}
	return 0, fmt.Errorf("cannot bind %T as %s", value, KindInt)
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.Trim(v, trimCutset))
		if err != nil {
			return false, fmt.Errorf("cannot bind %q as %s", v, KindBool)
		}
		return b, nil
	}
	if InferKind(value) == KindInt {
		i, err := toInt64(value)
		if err != nil {
			return false, err
		}
		return i != 0, nil
	}
	return false, fmt.Errorf("cannot bind %T as %s", value, KindBool)
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.DateTime)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}

package schema

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Converter translates a member value to and from its column
// representation. FromDB receives the raw driver value (never nil) and
// returns a value assignable to the member.
type Converter interface {
	ToDB(v any) (any, error)
	FromDB(v any) (any, error)
}

// BoolInt stores a bool member as 0/1.
var BoolInt Converter = boolInt{}

type boolInt struct{}

func (boolInt) ToDB(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("schema: BoolInt: unexpected type %T", v)
	}
	if b {
		return int64(1), nil
	}
	return int64(0), nil
}

func (boolInt) FromDB(v any) (any, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return string(v) != "0" && len(v) > 0, nil
	case string:
		return v != "0" && v != "", nil
	}
	return nil, fmt.Errorf("schema: BoolInt: unexpected column value %T", v)
}

// UUIDString stores a uuid.UUID member as its canonical string form.
var UUIDString Converter = uuidString{}

type uuidString struct{}

func (uuidString) ToDB(v any) (any, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v.String(), nil
	case *uuid.UUID:
		if v == nil {
			return nil, nil
		}
		return v.String(), nil
	}
	return nil, fmt.Errorf("schema: UUIDString: unexpected type %T", v)
}

func (uuidString) FromDB(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	}
	return nil, fmt.Errorf("schema: UUIDString: unexpected column value %T", v)
}

// Msgpack returns a converter storing a member of type T as a msgpack
// encoded blob.
func Msgpack[T any]() Converter { return msgpackConv[T]{} }

type msgpackConv[T any] struct{}

func (msgpackConv[T]) ToDB(v any) (any, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("schema: msgpack encode %T: %w", v, err)
	}
	return b, nil
}

func (msgpackConv[T]) FromDB(v any) (any, error) {
	var b []byte
	switch v := v.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil, fmt.Errorf("schema: msgpack: unexpected column value %T", v)
	}
	var out T
	if err := msgpack.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("schema: msgpack decode %s: %w", reflect.TypeFor[T](), err)
	}
	return out, nil
}

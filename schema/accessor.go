package schema

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
	bytesType   = reflect.TypeFor[[]byte]()
)

// timeLayouts are tried, in order, when a database returns a time column
// as text (SQLite).
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// assign stores the raw database value src into dst. A nil src resets dst
// to its zero value.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	if dst.Kind() == reflect.Pointer {
		v := reflect.New(dst.Type().Elem())
		if err := assign(v.Elem(), src); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}
	switch s := src.(type) {
	case []byte:
		return assignText(dst, string(s), true)
	case string:
		return assignText(dst, s, false)
	case time.Time:
		if dst.Kind() == reflect.String {
			dst.SetString(s.Format(time.RFC3339Nano))
			return nil
		}
	case bool:
		if isInt(dst.Kind()) {
			var n int64
			if s {
				n = 1
			}
			dst.SetInt(n)
			return nil
		}
	}
	switch {
	case dst.Kind() == reflect.Bool && (isInt(sv.Kind()) || isUint(sv.Kind())):
		dst.SetBool(!sv.IsZero())
		return nil
	case isNumeric(dst.Kind()) && isNumeric(sv.Kind()):
		dst.Set(sv.Convert(dst.Type()))
		return nil
	case sv.Type().ConvertibleTo(dst.Type()) && sv.Kind() == dst.Kind():
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
}

func assignText(dst reflect.Value, s string, raw bool) error {
	switch k := dst.Kind(); {
	case k == reflect.String:
		dst.SetString(s)
	case dst.Type() == bytesType:
		dst.SetBytes([]byte(s))
	case k == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case isInt(k):
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case isUint(k):
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		dst.SetUint(n)
	case k == reflect.Float32 || k == reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case dst.Type() == timeType:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return fmt.Errorf("cannot parse %q as time", s)
	default:
		if raw {
			return fmt.Errorf("cannot assign []byte to %s", dst.Type())
		}
		return fmt.Errorf("cannot assign string to %s", dst.Type())
	}
	return nil
}

// isSimple reports whether values of t can be stored in a single column
// without a converter.
func isSimple(t reflect.Type) bool {
	if reflect.PointerTo(t).Implements(scannerType) {
		return true
	}
	if t.Kind() == reflect.Pointer {
		return isSimple(t.Elem())
	}
	switch {
	case t == timeType, t == bytesType:
		return true
	case t.Kind() == reflect.Bool, t.Kind() == reflect.String, isNumeric(t.Kind()):
		return true
	}
	return false
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

// indirect dereferences v until it reaches a struct. It returns false for
// nil pointers.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

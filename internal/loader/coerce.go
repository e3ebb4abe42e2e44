package loader

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	secondsPerDay   = 86400
	daysPerMonth    = 30
	microsPerSecond = 1e6
)

// Coerce converts an in-memory cell into a value the driver binds natively.
//
// Missing markers (nil, typed nil pointers, NaN, the zero time.Time and
// invalid nullable wrappers) become nil. The zero time.Time therefore cannot
// be written; 0001-01-01 00:00:00 UTC is stored as NULL. Nullable and named numeric types are
// unwrapped to int64, uint64 or float64, keeping the integer/float
// distinction. time.Time values keep their zone. Durations become float
// seconds; pgtype.Interval counts a month as 30 days, and precision below one
// microsecond is lost. No range checks are made: out-of-range values are
// rejected by the destination at write time.
//
// Coerce never panics. Values it does not recognise are returned unchanged.
func Coerce(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case float32:
		if math.IsNaN(float64(x)) {
			return nil
		}
		return float64(x)
	case int64, string, bool, []byte:
		return x
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x
	case time.Duration:
		return x.Seconds()
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return Coerce(f)
		}
		return x.String()
	case pgtype.Interval:
		if !x.Valid {
			return nil
		}
		return float64(x.Microseconds)/microsPerSecond +
			float64(x.Days)*secondsPerDay +
			float64(x.Months)*daysPerMonth*secondsPerDay
	case pgtype.Timestamp:
		if !x.Valid {
			return nil
		}
		if x.InfinityModifier != pgtype.Finite {
			return x
		}
		return x.Time
	case pgtype.Timestamptz:
		if !x.Valid {
			return nil
		}
		if x.InfinityModifier != pgtype.Finite {
			return x
		}
		return x.Time
	case pgtype.Date:
		if !x.Valid {
			return nil
		}
		if x.InfinityModifier != pgtype.Finite {
			return x
		}
		return x.Time
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return Coerce(rv.Elem().Interface())
	}

	if valuer, ok := v.(driver.Valuer); ok {
		dv, ok := valuerValue(valuer)
		if !ok {
			return v
		}
		if dv == nil {
			return nil
		}
		if reflect.TypeOf(dv) == rv.Type() {
			return dv
		}
		return Coerce(dv)
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			return nil
		}
		return f
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}

	return v
}

// valuerValue calls Value, reporting false when it fails or panics.
func valuerValue(valuer driver.Valuer) (dv driver.Value, ok bool) {
	defer func() {
		if recover() != nil {
			dv, ok = nil, false
		}
	}()

	dv, err := valuer.Value()
	if err != nil {
		return nil, false
	}
	return dv, true
}

// CoerceRows returns a coerced copy of rows. The input is not modified.
func CoerceRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		coerced := make([]any, len(row))
		for j, cell := range row {
			coerced[j] = Coerce(cell)
		}
		out[i] = coerced
	}
	return out
}

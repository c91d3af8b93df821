package columnar

import (
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/m-mizutani/eventlake/internal/transform"
	"github.com/m-mizutani/eventlake/pkg/models"
)

// Parquet type of each catalog type. Converted types such as UTF8 and DATE are given as the
// type itself and parquet-go picks their physical type.
var parquetTypes = map[string]string{
	"string":    "UTF8",
	"varchar":   "UTF8",
	"char":      "UTF8",
	"tinyint":   "INT32",
	"smallint":  "INT32",
	"int":       "INT32",
	"integer":   "INT32",
	"bigint":    "INT64",
	"float":     "FLOAT",
	"double":    "DOUBLE",
	"boolean":   "BOOLEAN",
	"timestamp": "TIMESTAMP_MILLIS",
	"date":      "DATE",
}

// lookupType returns parquet type of the column. Catalog types not listed are stored as UTF8
// string and nested values are JSON text.
func lookupType(col models.Column) string {
	if t, ok := parquetTypes[col.BaseType()]; ok {
		return t
	}
	return "UTF8"
}

// Coerce converts a record value to the value for the column type. nil is returned if the
// value is null or can not be converted.
func Coerce(v interface{}, col models.Column) interface{} {
	if v == nil {
		return nil
	}

	switch col.BaseType() {
	case "tinyint", "smallint", "int", "integer":
		if i, ok := toInt(v); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
			return i
		}
		return nil

	case "bigint":
		if i, ok := toInt(v); ok {
			return i
		}
		return nil

	case "float", "double":
		if f, ok := toFloat(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
		return nil

	case "boolean":
		switch t := v.(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
				return b
			}
		}
		return nil

	case "timestamp":
		if t, ok := transform.ParseTimestamp(v); ok {
			return t.UnixNano() / int64(time.Millisecond)
		}
		return nil

	case "date":
		if t, ok := transform.ParseTimestamp(v); ok {
			return t.Unix() / (24 * 60 * 60)
		}
		return nil

	default:
		return toText(v)
	}
}

func toInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return int64(f), true
		}
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<63 {
			return int64(t), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	if f, ok := models.ToFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toText(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(raw)
	}
}

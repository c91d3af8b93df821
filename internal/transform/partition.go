package transform

import (
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/m-mizutani/eventlake/pkg/models"
)

var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp converts a timestamp value to UTC time. A string in RFC3339 or similar
// formats and a number of epoch seconds are supported.
func ParseTimestamp(v interface{}) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, format := range timestampFormats {
			if t, err := time.Parse(format, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}

	if f, ok := models.ToFloat(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}

	return time.Time{}, false
}

// DerivePartition returns partition values of a record. Fields that can not be derived are nil.
func DerivePartition(record *models.Record) models.Partition {
	var p models.Partition
	if eventType, ok := eventTypeLabel(record); ok {
		p.EventType = &eventType
	}

	if ts, ok := record.Timestamp(); ok {
		if t, ok := ParseTimestamp(ts); ok {
			year, month, day := t.Year(), int(t.Month()), t.Day()
			p.Year, p.Month, p.Day = &year, &month, &day
		}
	}

	return p
}

// eventTypeLabel returns text form of scalar event_type.
func eventTypeLabel(record *models.Record) (string, bool) {
	v, ok := record.Get(models.FieldEventType)
	if !ok {
		return "", false
	}

	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func intOrNull(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// AddPartitionFields sets year, month and day fields (null if timestamp is not parseable)
// to current record and keeps derived partition in the row.
func AddPartitionFields(rows []*Row) {
	for _, row := range rows {
		p := DerivePartition(row.Current)
		out := row.Current.Copy()
		out.Set(models.PartitionYear, intOrNull(p.Year))
		out.Set(models.PartitionMonth, intOrNull(p.Month))
		out.Set(models.PartitionDay, intOrNull(p.Day))
		row.Current = out
		row.Partition = p
	}
}

package transform

import (
	"strings"

	"github.com/m-mizutani/eventlake/pkg/models"
)

// Align projects a record to exactly the schema columns in schema order. A column missing
// in the record is set to null, a field not in the schema is dropped. Field names are
// matched exactly first, then case-insensitively.
func Align(record *models.Record, schema *models.TableSchema) *models.Record {
	var lower map[string]string
	out := models.NewRecord()

	for _, col := range schema.Columns {
		if v, ok := record.Get(col.Name); ok {
			out.Set(col.Name, v)
			continue
		}

		if lower == nil {
			lower = make(map[string]string, record.Len())
			for _, key := range record.Keys() {
				lk := strings.ToLower(key)
				if _, ok := lower[lk]; !ok {
					lower[lk] = key
				}
			}
		}

		if key, ok := lower[strings.ToLower(col.Name)]; ok {
			v, _ := record.Get(key)
			out.Set(col.Name, v)
			continue
		}

		out.Set(col.Name, nil)
	}

	return out
}

// AlignRows applies Align to current record of all rows.
func AlignRows(rows []*Row, schema *models.TableSchema) {
	for _, row := range rows {
		row.Current = Align(row.Current, schema)
	}
}

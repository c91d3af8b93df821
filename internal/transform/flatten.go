package transform

import "github.com/m-mizutani/eventlake/pkg/models"

// Flatten replaces every top-level nested object field "p" with fields "p_c" for each child
// "c". Only one level is flattened, deeper objects stay in child values. If a flattened
// name already exists, the flattened value overwrites it at the existing position.
func Flatten(record *models.Record) *models.Record {
	out := models.NewRecord()
	for _, key := range record.Keys() {
		v, _ := record.Get(key)
		nested, ok := v.(*models.Record)
		if !ok {
			out.Set(key, v)
			continue
		}

		for _, child := range nested.Keys() {
			cv, _ := nested.Get(child)
			out.Set(key+"_"+child, cv)
		}
	}
	return out
}

// FlattenRows applies Flatten to current record of all rows.
func FlattenRows(rows []*Row) {
	for _, row := range rows {
		row.Current = Flatten(row.Current)
	}
}

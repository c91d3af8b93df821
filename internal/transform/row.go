package transform

import "github.com/m-mizutani/eventlake/pkg/models"

// Row is one row of a batch. Current is transformed by stages, Original is the record as
// it was read and is never modified.
type Row struct {
	Current   *models.Record
	Original  *models.Record
	Partition models.Partition
}

// NewRows creates rows from records. Records are copied.
func NewRows(records []*models.Record) []*Row {
	rows := make([]*Row, len(records))
	for i, record := range records {
		rows[i] = &Row{
			Current:  record.Copy(),
			Original: record.Copy(),
		}
	}
	return rows
}

// Records returns current records of rows.
func Records(rows []*Row) []*models.Record {
	records := make([]*models.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].Current
	}
	return records
}

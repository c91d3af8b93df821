package transform

import "github.com/m-mizutani/eventlake/pkg/models"

// RequiredFields must be not null in a valid record.
var RequiredFields = []string{models.FieldEventType, models.FieldTimestamp}

// IsValid returns true if all required fields are not null.
func IsValid(record *models.Record) bool {
	for _, field := range RequiredFields {
		if !record.NotNull(field) {
			return false
		}
	}
	return true
}

// Split divides rows into valid and invalid rows. Every row goes to exactly one side and
// order is kept in each side.
func Split(rows []*Row) (valid, invalid []*Row) {
	for _, row := range rows {
		if IsValid(row.Current) {
			valid = append(valid, row)
		} else {
			invalid = append(invalid, row)
		}
	}
	return
}

package models

import "strings"

// Column is one column of a catalog table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// BaseType returns lower case type name without parameters. e.g. "decimal(10,2)" -> "decimal"
func (x Column) BaseType() string {
	t := strings.ToLower(strings.TrimSpace(x.Type))
	if i := strings.IndexAny(t, "(<"); i >= 0 {
		t = t[:i]
	}
	return t
}

// TableSchema is an ordered column set of a catalog table. Columns are data columns
// followed by partition keys.
type TableSchema struct {
	Database      string   `json:"database"`
	Table         string   `json:"table"`
	Location      string   `json:"location"`
	Columns       []Column `json:"columns"`
	PartitionKeys []string `json:"partition_keys"`
}

// Names returns column names in catalog order.
func (x *TableSchema) Names() []string {
	names := make([]string, len(x.Columns))
	for i := range x.Columns {
		names[i] = x.Columns[i].Name
	}
	return names
}

// Lookup finds a column by name.
func (x *TableSchema) Lookup(name string) (Column, bool) {
	for _, c := range x.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsPartitionKey returns true if name is one of partition keys.
func (x *TableSchema) IsPartitionKey(name string) bool {
	for _, k := range x.PartitionKeys {
		if k == name {
			return true
		}
	}
	return false
}

package convert

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/m-mizutani/eventlake/internal/repository"
	"github.com/m-mizutani/eventlake/internal/transform"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
)

// ColumnKind is inferred type of a table column.
type ColumnKind int

// Column kinds
const (
	KindString ColumnKind = iota
	KindInt
	KindFloat
	KindTimestamp
)

func (x ColumnKind) catalogType() string {
	switch x {
	case KindInt:
		return "bigint"
	case KindFloat:
		return "double"
	case KindTimestamp:
		return "timestamp"
	default:
		return "string"
	}
}

func (x ColumnKind) numeric() bool { return x == KindInt || x == KindFloat }

// Column names used by cleaning rules
const (
	ColumnDate        = "date"
	ColumnQuantity    = "quantity"
	ColumnPrice       = "price"
	ColumnTotal       = "total"
	ColumnProcessedAt = "processed_at"
)

// Cell text treated as null
var nullTexts = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true,
	"null": true, "NULL": true, "None": true, "#N/A": true,
}

// Table is column oriented data read from CSV. nil value is null.
type Table struct {
	Columns []string
	Kinds   []ColumnKind
	Rows    [][]interface{}
}

// NormalizeColumnName trims, lowers and replaces spaces with underscore.
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// uniqueHeader renames duplicated header names to "name.1", "name.2" and so on.
func uniqueHeader(header []string) []string {
	seen := map[string]int{}
	out := make([]string, len(header))
	for i, h := range header {
		if n, ok := seen[h]; ok {
			out[i] = fmt.Sprintf("%s.%d", h, n)
			seen[h] = n + 1
		} else {
			out[i] = h
			seen[h] = 1
		}
	}
	return out
}

// ReadCSV parses CSV with header. Column kind is int if all values are integers, float if
// all values are numbers and string otherwise. An int column having null becomes float.
func ReadCSV(r io.Reader) (*Table, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1

	header, err := rd.Read()
	if err == io.EOF {
		return nil, errors.New("CSV has no header")
	} else if err != nil {
		return nil, errors.Wrap(err, "Fail to read CSV header")
	}

	header = uniqueHeader(header)
	table := &Table{Columns: make([]string, len(header))}
	for i, h := range header {
		table.Columns[i] = NormalizeColumnName(h)
	}

	var cells [][]string
	for {
		line, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "Fail to read CSV")
		}
		row := make([]string, len(header))
		copy(row, line)
		cells = append(cells, row)
	}

	table.Kinds = make([]ColumnKind, len(header))
	for c := range header {
		table.Kinds[c] = inferKind(cells, c)
	}

	for _, line := range cells {
		row := make([]interface{}, len(header))
		for c, text := range line {
			row[c] = parseCell(text, table.Kinds[c])
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func inferKind(cells [][]string, c int) ColumnKind {
	kind := KindInt
	hasNull := false
	for _, line := range cells {
		text := strings.TrimSpace(line[c])
		if nullTexts[text] {
			hasNull = true
			continue
		}
		if kind == KindInt {
			if _, err := strconv.ParseInt(text, 10, 64); err == nil {
				continue
			}
			kind = KindFloat
		}
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return KindString
		}
	}

	if kind == KindInt && hasNull {
		return KindFloat
	}
	return kind
}

func parseCell(text string, kind ColumnKind) interface{} {
	if nullTexts[strings.TrimSpace(text)] {
		return nil
	}

	switch kind {
	case KindInt:
		v, _ := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		return v
	case KindFloat:
		v, _ := strconv.ParseFloat(strings.TrimSpace(text), 64)
		return v
	default:
		return text
	}
}

// Index returns position of the column, or -1.
func (x *Table) Index(name string) int {
	for i, c := range x.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// SetColumn replaces values of an existing column or appends a new column.
func (x *Table) SetColumn(name string, kind ColumnKind, values []interface{}) {
	idx := x.Index(name)
	if idx < 0 {
		x.Columns = append(x.Columns, name)
		x.Kinds = append(x.Kinds, kind)
		for i := range x.Rows {
			x.Rows[i] = append(x.Rows[i], values[i])
		}
		return
	}

	x.Kinds[idx] = kind
	for i := range x.Rows {
		x.Rows[i][idx] = values[i]
	}
}

// Clean applies cleaning rules in order: null filling, date parsing, total calculation,
// processed_at and dropping duplicated rows.
func (x *Table) Clean(now time.Time) error {
	x.fillNull()
	x.parseDate()
	if err := x.addTotal(); err != nil {
		return err
	}

	processedAt := make([]interface{}, len(x.Rows))
	for i := range processedAt {
		processedAt[i] = now.UTC()
	}
	x.SetColumn(ColumnProcessedAt, KindTimestamp, processedAt)

	return x.dropDuplicates()
}

func (x *Table) fillNull() {
	for c, kind := range x.Kinds {
		for _, row := range x.Rows {
			if row[c] != nil {
				continue
			}
			switch kind {
			case KindInt:
				row[c] = int64(0)
			case KindFloat:
				row[c] = float64(0)
			case KindString:
				row[c] = ""
			}
		}
	}
}

func (x *Table) parseDate() {
	idx := x.Index(ColumnDate)
	if idx < 0 {
		return
	}

	dates := make([]interface{}, len(x.Rows))
	years := make([]interface{}, len(x.Rows))
	months := make([]interface{}, len(x.Rows))
	days := make([]interface{}, len(x.Rows))
	for i, row := range x.Rows {
		t, ok := transform.ParseTimestamp(row[idx])
		if !ok {
			continue
		}
		dates[i] = t
		years[i], months[i], days[i] = int64(t.Year()), int64(t.Month()), int64(t.Day())
	}

	x.SetColumn(ColumnDate, KindTimestamp, dates)
	x.SetColumn(models.PartitionYear, KindInt, years)
	x.SetColumn(models.PartitionMonth, KindInt, months)
	x.SetColumn(models.PartitionDay, KindInt, days)
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func (x *Table) addTotal() error {
	q, p := x.Index(ColumnQuantity), x.Index(ColumnPrice)
	if q < 0 || p < 0 {
		return nil
	}

	totals := make([]interface{}, len(x.Rows))
	for i, row := range x.Rows {
		quantity, ok := toFloat(row[q])
		if !ok {
			return errors.Errorf("quantity of row %d is not a number: %v", i, row[q])
		}
		price, ok := toFloat(row[p])
		if !ok {
			return errors.Errorf("price of row %d is not a number: %v", i, row[p])
		}
		totals[i] = quantity * price
	}

	x.SetColumn(ColumnTotal, KindFloat, totals)
	return nil
}

func (x *Table) dropDuplicates() error {
	seen := map[string]bool{}
	var rows [][]interface{}
	for _, row := range x.Rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return errors.Wrap(err, "Fail to compare rows")
		}
		if seen[string(raw)] {
			continue
		}
		seen[string(raw)] = true
		rows = append(rows, row)
	}
	x.Rows = rows
	return nil
}

func exportValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// CatalogColumns returns columns with catalog types for parquet output.
func (x *Table) CatalogColumns() []models.Column {
	cols := make([]models.Column, len(x.Columns))
	for i, name := range x.Columns {
		cols[i] = models.Column{Name: name, Type: x.Kinds[i].catalogType()}
	}
	return cols
}

// Records converts rows to records keeping column order. Timestamps are RFC3339 text.
func (x *Table) Records() []*models.Record {
	records := make([]*models.Record, len(x.Rows))
	for i, row := range x.Rows {
		r := models.NewRecord()
		for c, name := range x.Columns {
			r.Set(name, exportValue(row[c]))
		}
		records[i] = r
	}
	return records
}

// Items converts rows to repository rows.
func (x *Table) Items() []repository.Row {
	items := make([]repository.Row, len(x.Rows))
	for i, row := range x.Rows {
		item := repository.Row{}
		for c, name := range x.Columns {
			item[name] = exportValue(row[c])
		}
		items[i] = item
	}
	return items
}

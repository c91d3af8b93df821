package columnar

import (
	"io/ioutil"
	"os"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/m-mizutani/eventlake/internal"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/transform"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

var logger = internal.Logger

const (
	// About parquet format: https://parquet.apache.org/documentation/latest/
	parquetRowGroupSize = 16 * 1024 * 1024 // 16M

	parquetRootName = "parquet_go_root"
)

type schemaField struct {
	Tag string `json:"Tag"`
}

type schemaRoot struct {
	Tag    string        `json:"Tag"`
	Fields []schemaField `json:"Fields"`
}

// FileColumns returns columns stored in parquet files. Partition columns are encoded in
// the object key and not stored in files.
func FileColumns(schema *models.TableSchema) []models.Column {
	var cols []models.Column
	for _, col := range schema.Columns {
		if schema.IsPartitionKey(col.Name) || isPartitionColumn(col.Name) {
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

func isPartitionColumn(name string) bool {
	for _, p := range models.PartitionColumns {
		if p == name {
			return true
		}
	}
	return false
}

// buildJSONSchema creates JSON schema for parquet-go JSONWriter. All columns are OPTIONAL.
func buildJSONSchema(cols []models.Column) (string, error) {
	root := schemaRoot{Tag: "name=" + parquetRootName + ", repetitiontype=REQUIRED"}
	for _, col := range cols {
		tag := "name=" + col.Name + ", inname=" + common.HeadToUpper(col.Name) +
			", type=" + lookupType(col) + ", repetitiontype=OPTIONAL"
		root.Fields = append(root.Fields, schemaField{Tag: tag})
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return "", errors.Wrap(err, "Fail to marshal parquet schema")
	}
	return string(raw), nil
}

// ParquetWriter writes rows to snappy compressed parquet files, one file per partition.
type ParquetWriter struct {
	s3Service *service.S3Service
	NewFileID func() string
}

// NewParquetWriter is constructor of ParquetWriter
func NewParquetWriter(s3Service *service.S3Service) *ParquetWriter {
	return &ParquetWriter{
		s3Service: s3Service,
		NewFileID: func() string { return uuid.New().String() },
	}
}

type partitionGroup struct {
	partition models.Partition
	rows      []*transform.Row
}

func groupByPartition(rows []*transform.Row) []*partitionGroup {
	var groups []*partitionGroup
	index := map[string]*partitionGroup{}
	for _, row := range rows {
		key := row.Partition.Path()
		g, ok := index[key]
		if !ok {
			g = &partitionGroup{partition: row.Partition}
			index[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}
	return groups
}

// Write appends rows under dst prefix. Existing objects are never overwritten because every
// file gets a new file ID. Values are converted to column types and a value that can not
// be converted is stored as null.
func (x *ParquetWriter) Write(rows []*transform.Row, schema *models.TableSchema, dst models.S3Object) ([]models.ParquetLocation, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	cols := FileColumns(schema)
	if len(cols) == 0 {
		return nil, errors.Errorf("No data column in %s.%s", schema.Database, schema.Table)
	}
	jsonSchema, err := buildJSONSchema(cols)
	if err != nil {
		return nil, err
	}

	var locations []models.ParquetLocation
	for _, g := range groupByPartition(rows) {
		loc := models.ParquetLocation{
			Region:    dst.Region,
			Bucket:    dst.Bucket,
			Prefix:    dst.Key,
			Partition: g.partition,
			FileID:    x.NewFileID(),
		}

		if err := x.writeFile(transform.Records(g.rows), cols, jsonSchema, loc.Object()); err != nil {
			return locations, err
		}
		locations = append(locations, loc)
	}

	return locations, nil
}

// WriteObject writes records to one parquet object dst with columns cols.
func (x *ParquetWriter) WriteObject(records []*models.Record, cols []models.Column, dst models.S3Object) error {
	jsonSchema, err := buildJSONSchema(cols)
	if err != nil {
		return err
	}
	return x.writeFile(records, cols, jsonSchema, dst)
}

func (x *ParquetWriter) writeFile(records []*models.Record, cols []models.Column, jsonSchema string, dst models.S3Object) error {
	filePath, err := dumpParquet(records, cols, jsonSchema)
	if err != nil {
		return err
	}
	defer os.Remove(filePath)

	if err := x.s3Service.UploadFileToS3(filePath, dst); err != nil {
		return err
	}
	metrics.ObjectsWritten.WithLabelValues("parquet").Inc()

	logger.WithFields(logrus.Fields{
		"object": dst.Path(),
		"rows":   len(records),
	}).Info("Wrote parquet object")

	return nil
}

// dumpParquet writes records to a temp file and returns the file path.
func dumpParquet(records []*models.Record, cols []models.Column, jsonSchema string) (string, error) {
	fd, err := ioutil.TempFile("", "*.parquet")
	if err != nil {
		return "", errors.Wrap(err, "Fail to create a temp parquet file")
	}
	fd.Close()
	filePath := fd.Name()

	if err := dumpParquetFile(filePath, records, cols, jsonSchema); err != nil {
		os.Remove(filePath)
		return "", err
	}
	return filePath, nil
}

func dumpParquetFile(filePath string, records []*models.Record, cols []models.Column, jsonSchema string) error {
	fw, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return errors.Wrapf(err, "Fail to open a parquet file: %s", filePath)
	}
	defer fw.Close()

	pw, err := writer.NewJSONWriter(jsonSchema, fw, 1)
	if err != nil {
		return errors.Wrap(err, "Fail to create parquet writer")
	}
	pw.RowGroupSize = parquetRowGroupSize
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range records {
		line, err := encodeRow(record, cols)
		if err != nil {
			return err
		}
		if err := pw.Write(line); err != nil {
			return errors.Wrap(err, "Fail to write a row to parquet")
		}
	}

	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "Fail to finalize parquet file")
	}
	return nil
}

// encodeRow creates a JSON object of coerced values. Null values are omitted.
func encodeRow(record *models.Record, cols []models.Column) (string, error) {
	values := make(map[string]interface{}, len(cols))
	for _, col := range cols {
		v, _ := record.Get(col.Name)
		if c := Coerce(v, col); c != nil {
			values[col.Name] = c
		}
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return "", errors.Wrap(err, "Fail to encode a row for parquet")
	}
	return string(raw), nil
}

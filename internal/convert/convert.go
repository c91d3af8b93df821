// Package convert cleans a CSV object and stores it as parquet and DynamoDB items.
package convert

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/eventlake/internal"
	"github.com/m-mizutani/eventlake/internal/columnar"
	"github.com/m-mizutani/eventlake/internal/repository"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger = internal.Logger

// Result is outcome of Convert.
type Result struct {
	Source  string   `json:"source"`
	Parquet string   `json:"parquet"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// Converter reads CSV from S3, cleans it, writes parquet next to the CSV, notifies by email
// and puts all rows to repository.
type Converter struct {
	s3Service  *service.S3Service
	parquet    *columnar.ParquetWriter
	notify     *service.NotifyService
	rows       repository.RowRepository
	recipients []string

	Now func() time.Time
}

// NewConverter is constructor of Converter. notify and rows can be nil to skip the step.
func NewConverter(s3Service *service.S3Service, notify *service.NotifyService, rows repository.RowRepository, recipients []string) *Converter {
	return &Converter{
		s3Service:  s3Service,
		parquet:    columnar.NewParquetWriter(s3Service),
		notify:     notify,
		rows:       rows,
		recipients: recipients,
		Now:        time.Now,
	}
}

// ParquetKey replaces extension of key with ".parquet"
func ParquetKey(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		key = key[:idx]
	}
	return key + ".parquet"
}

// Convert processes one CSV object.
func (x *Converter) Convert(src models.S3Object) (*Result, error) {
	raw, err := x.s3Service.ReadObject(src)
	if err != nil {
		return nil, err
	}

	table, err := ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to parse CSV: %s", src.Path())
	}

	if err := table.Clean(x.Now()); err != nil {
		return nil, errors.Wrapf(err, "Fail to clean CSV: %s", src.Path())
	}

	dst := models.NewS3Object(src.Region, src.Bucket, ParquetKey(src.Key))
	if err := x.parquet.WriteObject(table.Records(), table.CatalogColumns(), dst); err != nil {
		return nil, err
	}

	result := &Result{
		Source:  src.Path(),
		Parquet: dst.Path(),
		Columns: table.Columns,
		Rows:    len(table.Rows),
	}

	if x.notify != nil {
		subject := fmt.Sprintf("File %s processed", src.Key)
		body := fmt.Sprintf("CSV file %s processed and stored as %s.", src.Key, dst.Key)
		if err := x.notify.Send(x.recipients, subject, body); err != nil {
			return result, err
		}
	}

	if x.rows != nil {
		if err := x.rows.PutRows(table.Items()); err != nil {
			return result, err
		}
	}

	logger.WithFields(logrus.Fields{
		"source":  result.Source,
		"parquet": result.Parquet,
		"rows":    result.Rows,
	}).Info("Converted CSV")

	return result, nil
}

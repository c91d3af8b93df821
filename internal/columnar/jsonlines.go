package columnar

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// JSONLinesWriter writes values as newline delimited JSON objects.
type JSONLinesWriter struct {
	s3Service  *service.S3Service
	newEncoder adaptor.EncoderFactory
	kind       string
	NewFileID  func() string
}

// NewJSONLinesWriter is constructor of JSONLinesWriter. kind is label of written objects
// for metrics.
func NewJSONLinesWriter(s3Service *service.S3Service, newEncoder adaptor.EncoderFactory, kind string) *JSONLinesWriter {
	if newEncoder == nil {
		newEncoder = adaptor.NewJSONLinesEncoder
	}
	return &JSONLinesWriter{
		s3Service:  s3Service,
		newEncoder: newEncoder,
		kind:       kind,
		NewFileID:  func() string { return uuid.New().String() },
	}
}

// NewQuarantineWriter creates JSONLinesWriter for invalid records.
func NewQuarantineWriter(s3Service *service.S3Service) *JSONLinesWriter {
	return NewJSONLinesWriter(s3Service, adaptor.NewJSONLinesEncoder, "quarantine")
}

func (x *JSONLinesWriter) encode(values []interface{}) ([]byte, adaptor.Encoder, error) {
	buf := &bytes.Buffer{}
	enc := x.newEncoder(buf)
	for i, v := range values {
		if err := enc.Encode(v); err != nil {
			return nil, nil, errors.Wrapf(err, "Fail to encode value #%d", i)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, nil, errors.Wrap(err, "Fail to close encoder")
	}
	return buf.Bytes(), enc, nil
}

// Put writes values to dst.
func (x *JSONLinesWriter) Put(values []interface{}, dst models.S3Object) error {
	raw, enc, err := x.encode(values)
	if err != nil {
		return err
	}

	if err := x.s3Service.PutObject(raw, dst, enc.ContentEncoding()); err != nil {
		return err
	}
	metrics.ObjectsWritten.WithLabelValues(x.kind).Inc()

	logger.WithFields(logrus.Fields{
		"object": dst.Path(),
		"count":  len(values),
		"size":   enc.Size(),
	}).Info("Wrote JSON lines object")
	return nil
}

// Append writes values to a new object "part-{fileID}.{ext}" under prefix and returns
// the object. Nothing is written for empty values.
func (x *JSONLinesWriter) Append(values []interface{}, prefix models.S3Object) (*models.S3Object, error) {
	if len(values) == 0 {
		return nil, nil
	}

	enc := x.newEncoder(&bytes.Buffer{})
	dst := prefix.AppendKey(fmt.Sprintf("part-%s.%s", x.NewFileID(), enc.Ext()))
	if err := x.Put(values, dst); err != nil {
		return nil, err
	}
	return &dst, nil
}

// RecordValues converts records to values for JSONLinesWriter.
func RecordValues(records []*models.Record) []interface{} {
	values := make([]interface{}, len(records))
	for i := range records {
		values[i] = records[i]
	}
	return values
}

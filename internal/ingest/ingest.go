// Package ingest has logic of producer facing Lambda functions: storing stream records to
// raw storage and publishing records to stream.
package ingest

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/m-mizutani/eventlake/internal"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/transform"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger = internal.Logger

// Key prefixes of the error bucket
const (
	InvalidPrefix = "invalid"
	ErrorPrefix   = "error"

	unknownEventType = "unknown"
)

// IngestResult is counts of one Ingest call.
type IngestResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Ingester stores each stream record as one object. A valid record goes to raw bucket
// "{event_type}/{id}.json", a record lacking required fields goes to error bucket
// "invalid/{id}.json" and an undecodable payload goes to "error/{id}.json".
type Ingester struct {
	raw       models.S3Object
	errBucket models.S3Object
	s3Service *service.S3Service

	NewID func() string
}

// NewIngester is constructor of Ingester. Key of raw and errBucket is used as prefix.
func NewIngester(raw, errBucket models.S3Object, s3Service *service.S3Service) *Ingester {
	return &Ingester{
		raw:       raw,
		errBucket: errBucket,
		s3Service: s3Service,
		NewID: func() string {
			return strings.ReplaceAll(uuid.New().String(), "-", "")
		},
	}
}

func eventTypeDir(record *models.Record) string {
	eventType, ok := record.EventType()
	if !ok || eventType == "" {
		return unknownEventType
	}
	return strings.ReplaceAll(eventType, "/", "_")
}

func (x *Ingester) put(v interface{}, dst models.S3Object, kind string) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "Fail to marshal ingested object")
	}
	if err := x.s3Service.PutObject(raw, dst, ""); err != nil {
		return err
	}
	metrics.ObjectsWritten.WithLabelValues(kind).Inc()
	return nil
}

// Ingest stores records. Failure of storing an object aborts Ingest and the error is returned.
func (x *Ingester) Ingest(records []models.StreamRecord) (*IngestResult, error) {
	result := &IngestResult{}

	for _, r := range records {
		record, err := models.DecodeRecord(r.Data)
		if err != nil {
			entry := models.NewErrorEntry(r.Data, err)
			entry.SequenceNumber = r.SequenceNumber
			dst := x.errBucket.AppendKey(ErrorPrefix + "/" + x.NewID() + ".json")
			if err := x.put(entry, dst, "error"); err != nil {
				return result, err
			}
			result.Failed++
			continue
		}

		if !transform.IsValid(record) {
			dst := x.errBucket.AppendKey(InvalidPrefix + "/" + x.NewID() + ".json")
			if err := x.put(models.NewInvalidEntry(record), dst, "invalid"); err != nil {
				return result, err
			}
			result.Failed++
			continue
		}

		dst := x.raw.AppendKey(eventTypeDir(record) + "/" + x.NewID() + ".json")
		if err := x.put(record, dst, "raw"); err != nil {
			return result, err
		}
		result.Processed++
	}

	logger.WithFields(logrus.Fields{
		"processed": result.Processed,
		"failed":    result.Failed,
	}).Info("Ingested records")

	return result, nil
}

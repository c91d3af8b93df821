package pipeline

import (
	"bytes"

	json "github.com/goccy/go-json"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FieldEnriched is set to true by EnrichTask.
const FieldEnriched = "enriched"

// EnrichTaskResult is outcome of EnrichTask.
type EnrichTaskResult struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Processed int    `json:"processed"`
}

// EnrichTask reads a JSON array of records from one object, marks every record as enriched
// and writes them to another object as a JSON array.
type EnrichTask struct {
	s3Service *service.S3Service
}

// NewEnrichTask is constructor of EnrichTask
func NewEnrichTask(s3Service *service.S3Service) *EnrichTask {
	return &EnrichTask{s3Service: s3Service}
}

// Run executes the task once. Target object is overwritten.
func (x *EnrichTask) Run(src, dst models.S3Object) (*EnrichTaskResult, error) {
	result := &EnrichTaskResult{Source: src.Path(), Target: dst.Path()}

	raw, err := x.s3Service.ReadObject(src)
	if err != nil {
		return result, err
	}

	records, err := models.DecodeRecords(bytes.NewReader(raw))
	if err != nil {
		return result, errors.Wrapf(err, "Fail to decode records of %s", src.Path())
	}

	timer := stageTimer(StageEnrich)
	for _, record := range records {
		record.Set(FieldEnriched, true)
	}
	timer.ObserveDuration()

	if records == nil {
		records = []*models.Record{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return result, errors.Wrap(err, "Fail to encode enriched records")
	}
	if err := x.s3Service.PutObject(body, dst, ""); err != nil {
		return result, err
	}
	metrics.ObjectsWritten.WithLabelValues("enriched").Inc()
	result.Processed = len(records)

	logger.WithFields(logrus.Fields{
		"source":    result.Source,
		"target":    result.Target,
		"processed": result.Processed,
	}).Info("Enriched records")

	return result, nil
}

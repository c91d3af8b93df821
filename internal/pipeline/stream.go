package pipeline

import (
	"fmt"
	"time"

	"github.com/m-mizutani/eventlake/internal/columnar"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/transform"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultStreamReadLimit is number of records read by one StreamJob run.
const DefaultStreamReadLimit = 100

// StreamConfig is settings of StreamJob.
type StreamConfig struct {
	InputStream  string
	OutputStream string

	// Processed is key prefix of enriched records, e.g. s3://bucket/processed
	Processed models.S3Object
	// Quarantine is key prefix of undecodable payloads, e.g. s3://bucket/error/
	Quarantine models.S3Object

	Limit int
}

// StreamResult is outcome of one StreamJob run.
type StreamResult struct {
	Read          int    `json:"read"`
	Published     int    `json:"published"`
	DecodeErrors  int    `json:"decode_errors"`
	ProcessedKey  string `json:"processed_key,omitempty"`
	QuarantineKey string `json:"quarantine_key,omitempty"`
}

// StreamJob reads records from input stream, enriches them and publishes them to output
// stream. Enriched records are also stored to S3 as JSON lines.
type StreamJob struct {
	config     StreamConfig
	reader     *service.StreamReader
	writer     *service.StreamWriter
	processed  *columnar.JSONLinesWriter
	quarantine *columnar.JSONLinesWriter

	Enricher *transform.Enricher
	Now      func() time.Time
}

// NewStreamJob is constructor of StreamJob
func NewStreamJob(config StreamConfig, reader *service.StreamReader, writer *service.StreamWriter, s3Service *service.S3Service) *StreamJob {
	if config.Limit <= 0 {
		config.Limit = DefaultStreamReadLimit
	}

	return &StreamJob{
		config:     config,
		reader:     reader,
		writer:     writer,
		processed:  columnar.NewJSONLinesWriter(s3Service, nil, "processed"),
		quarantine: columnar.NewQuarantineWriter(s3Service),
		Enricher:   transform.NewEnricher(),
		Now:        time.Now,
	}
}

// QuarantineWriter returns the writer to replace file ID generator in test.
func (x *StreamJob) QuarantineWriter() *columnar.JSONLinesWriter { return x.quarantine }

// processedObject returns {prefix}/YYYY/MM/DD/data_HHMMSSffffff.json
func processedObject(prefix models.S3Object, now time.Time) models.S3Object {
	now = now.UTC()
	key := fmt.Sprintf("%04d/%02d/%02d/data_%s%06d.json",
		now.Year(), now.Month(), now.Day(), now.Format("150405"), now.Nanosecond()/1000)
	return prefix.AppendKey(key)
}

// Run reads, enriches and publishes records once. Nothing is stored to S3 if publishing fails.
func (x *StreamJob) Run() (*StreamResult, error) {
	result := &StreamResult{}

	results, err := x.reader.Read(x.config.InputStream, x.config.Limit)
	if err != nil {
		return result, errors.Wrapf(err, "Fail to read stream: %s", x.config.InputStream)
	}
	result.Read = len(results)
	if len(results) == 0 {
		logger.WithField("stream", x.config.InputStream).Info("No record in stream")
		return result, nil
	}

	timer := stageTimer(StageEnrich)
	var enriched []*models.Record
	var outputs []models.StreamRecord
	var failures []interface{}
	for _, r := range results {
		if !r.OK() {
			entry := models.NewErrorEntry(r.Raw.Data, r.Err.Err)
			entry.ShardID = r.Err.ShardID
			entry.SequenceNumber = r.Err.SequenceNumber
			failures = append(failures, entry)
			continue
		}

		record := x.Enricher.Enrich(r.Record)
		raw, err := record.MarshalJSON()
		if err != nil {
			timer.ObserveDuration()
			return result, errors.Wrap(err, "Fail to serialize enriched record")
		}
		enriched = append(enriched, record)
		outputs = append(outputs, models.StreamRecord{
			Data:         raw,
			PartitionKey: r.Raw.PartitionKey,
		})
	}
	timer.ObserveDuration()
	result.DecodeErrors = len(failures)

	timer = stageTimer(StagePublish)
	for i := 0; i < len(outputs); i += service.MaxPutRecordsEntries {
		end := i + service.MaxPutRecordsEntries
		if end > len(outputs) {
			end = len(outputs)
		}
		if err := x.writer.Write(x.config.OutputStream, outputs[i:end]); err != nil {
			timer.ObserveDuration()
			return result, err
		}
		result.Published = end
	}
	timer.ObserveDuration()

	timer = stageTimer(StageProcessed)
	defer timer.ObserveDuration()

	if len(enriched) > 0 {
		dst := processedObject(x.config.Processed, x.Now())
		if err := x.processed.Put(columnar.RecordValues(enriched), dst); err != nil {
			return result, errors.Wrap(err, "Fail to store processed records")
		}
		result.ProcessedKey = dst.Key
	}

	quarantined, err := x.quarantine.Append(failures, x.config.Quarantine)
	if err != nil {
		return result, errors.Wrap(err, "Fail to store undecodable records")
	}
	if quarantined != nil {
		result.QuarantineKey = quarantined.Key
	}

	logger.WithFields(logrus.Fields{
		"input":         x.config.InputStream,
		"output":        x.config.OutputStream,
		"read":          result.Read,
		"published":     result.Published,
		"decode_errors": result.DecodeErrors,
	}).Info("Done stream job")

	return result, nil
}

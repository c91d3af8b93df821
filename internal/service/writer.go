package service

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// PutRecords can have up to 500 entries per call
	// https://docs.aws.amazon.com/kinesis/latest/APIReference/API_PutRecords.html
	MaxPutRecordsEntries = 500
)

// StreamWriter publishes records to a stream by PutRecords.
type StreamWriter struct {
	region     string
	newKinesis adaptor.KinesisClientFactory
	retry      *util.RetryPolicy

	// RetryRejectedOnly enables retrying entries rejected in a successful PutRecords call.
	// Only the rejected entries are sent again in the same attempt budget. If false,
	// rejected entries are logged and dropped.
	RetryRejectedOnly bool
}

// NewStreamWriter is constructor of StreamWriter. RetryRejectedOnly is enabled.
func NewStreamWriter(region string, newKinesis adaptor.KinesisClientFactory, retry *util.RetryPolicy) *StreamWriter {
	if retry == nil {
		retry = util.NewRetryPolicy()
	}
	return &StreamWriter{
		region:            region,
		newKinesis:        newKinesis,
		retry:             retry,
		RetryRejectedOnly: true,
	}
}

// Write puts records to the stream in one PutRecords call (and retries). Empty partition key
// is replaced with models.DefaultPartitionKey. More than MaxPutRecordsEntries records are
// not chunked and ErrWrite is returned without calling the API.
func (x *StreamWriter) Write(streamName string, records []models.StreamRecord) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) > MaxPutRecordsEntries {
		return newError(ErrWrite, nil, "%d records exceed limit of PutRecords (%d)", len(records), MaxPutRecordsEntries)
	}

	pending := make([]*kinesis.PutRecordsRequestEntry, len(records))
	for i, r := range records {
		key := r.PartitionKey
		if key == "" {
			key = models.DefaultPartitionKey
		}
		pending[i] = &kinesis.PutRecordsRequestEntry{
			Data:         r.Data,
			PartitionKey: aws.String(key),
		}
	}

	client := x.newKinesis(x.region)
	err := x.retry.Run(func(seq int) error {
		output, err := client.PutRecords(&kinesis.PutRecordsInput{
			StreamName: aws.String(streamName),
			Records:    pending,
		})
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"seq":     seq,
				"stream":  streamName,
				"entries": len(pending),
			}).Warn("Fail to put records")
			return err
		}

		failed := aws.Int64Value(output.FailedRecordCount)
		metrics.StreamRecordsWritten.WithLabelValues(streamName, metrics.ResultOK).Add(float64(int64(len(pending)) - failed))
		if failed == 0 {
			return nil
		}
		metrics.StreamRecordsWritten.WithLabelValues(streamName, metrics.ResultRejected).Add(float64(failed))

		if !x.RetryRejectedOnly {
			logger.WithFields(logrus.Fields{
				"stream":            streamName,
				"failedRecordCount": failed,
			}).Warn("Some entries are rejected and ignored")
			return nil
		}

		var rejected []*kinesis.PutRecordsRequestEntry
		for i, result := range output.Records {
			if i < len(pending) && result.ErrorCode != nil && result.SequenceNumber == nil {
				rejected = append(rejected, pending[i])
			}
		}
		if len(rejected) == 0 {
			return nil
		}

		logger.WithFields(logrus.Fields{
			"seq":      seq,
			"stream":   streamName,
			"rejected": len(rejected),
			"entries":  len(pending),
		}).Warn("Some entries are rejected, retry them")

		pending = rejected
		return errors.Errorf("%d entries rejected by PutRecords", len(rejected))
	})

	if err != nil {
		metrics.StreamRecordsWritten.WithLabelValues(streamName, metrics.ResultFailed).Add(float64(len(pending)))
		return newError(ErrWrite, err, "Fail to put %d records to %s", len(records), streamName)
	}

	logger.WithFields(logrus.Fields{
		"stream":  streamName,
		"records": len(records),
	}).Debug("Put records")

	return nil
}

// PartitionKeyFunc derives partition key of a record.
type PartitionKeyFunc func(record *models.Record) string

// EventTypeKey uses event_type as partition key.
func EventTypeKey(record *models.Record) string {
	if v, ok := record.EventType(); ok {
		return v
	}
	return models.DefaultPartitionKey
}

// Serialize encodes records to StreamRecord with partition keys.
func Serialize(records []*models.Record, keyFunc PartitionKeyFunc) ([]models.StreamRecord, error) {
	if keyFunc == nil {
		keyFunc = EventTypeKey
	}

	out := make([]models.StreamRecord, len(records))
	for i, record := range records {
		raw, err := record.MarshalJSON()
		if err != nil {
			return nil, errors.Wrapf(err, "Fail to serialize record #%d", i)
		}
		out[i] = models.StreamRecord{
			Data:         raw,
			PartitionKey: keyFunc(record),
		}
	}
	return out, nil
}

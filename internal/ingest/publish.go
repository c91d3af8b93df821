package ingest

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/itchyny/gojq"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPartitionKeyQuery selects event_type as partition key.
const DefaultPartitionKeyQuery = ".event_type"

// NewPartitionKeyQuery compiles jq query to PartitionKeyFunc. The first string, number or
// boolean result is used as partition key. models.DefaultPartitionKey is used if the query
// returns nothing usable.
func NewPartitionKeyQuery(query string) (service.PartitionKeyFunc, error) {
	if query == "" {
		query = DefaultPartitionKeyQuery
	}

	q, err := gojq.Parse(query)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to parse partition key query: %s", query)
	}

	return func(record *models.Record) string {
		input, err := queryInput(record)
		if err != nil {
			logger.WithError(err).Warn("Fail to convert record for partition key query")
			return models.DefaultPartitionKey
		}

		iter := q.Run(input)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, ok := v.(error); ok {
				logger.WithError(err).WithField("query", query).Debug("Partition key query error")
				break
			}
			if key := keyString(v); key != "" {
				return key
			}
		}
		return models.DefaultPartitionKey
	}, nil
}

// queryInput converts record to generic JSON value that gojq can handle.
func queryInput(record *models.Record) (interface{}, error) {
	raw, err := record.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func keyString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// PublishResult is outcome of Publish.
type PublishResult struct {
	Records           int `json:"records"`
	FailedRecordCount int `json:"failed_record_count"`
}

// Publisher puts records to a stream with partition keys from jq query.
type Publisher struct {
	stream  string
	writer  *service.StreamWriter
	keyFunc service.PartitionKeyFunc
}

// NewPublisher is constructor of Publisher
func NewPublisher(stream string, writer *service.StreamWriter, keyFunc service.PartitionKeyFunc) *Publisher {
	return &Publisher{
		stream:  stream,
		writer:  writer,
		keyFunc: keyFunc,
	}
}

// Publish serializes records and puts them by chunks of service.MaxPutRecordsEntries.
// Records of a failed chunk are counted in FailedRecordCount and the error is returned.
func (x *Publisher) Publish(records []*models.Record) (*PublishResult, error) {
	result := &PublishResult{Records: len(records)}

	entries, err := service.Serialize(records, x.keyFunc)
	if err != nil {
		return result, err
	}

	for i := 0; i < len(entries); i += service.MaxPutRecordsEntries {
		end := i + service.MaxPutRecordsEntries
		if end > len(entries) {
			end = len(entries)
		}

		if err := x.writer.Write(x.stream, entries[i:end]); err != nil {
			result.FailedRecordCount = len(entries) - i
			logger.WithFields(logrus.Fields{
				"stream":              x.stream,
				"failed_record_count": result.FailedRecordCount,
			}).Error("Fail to publish records")
			return result, err
		}
	}

	logger.WithFields(logrus.Fields{
		"stream":              x.stream,
		"records":             result.Records,
		"failed_record_count": result.FailedRecordCount,
	}).Info("Published records")

	return result, nil
}

package service

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	// GetRecords can return up to 10,000 records per call
	// https://docs.aws.amazon.com/kinesis/latest/APIReference/API_GetRecords.html
	maxGetRecordsLimit = 10000
)

// ShardService enumerates shards and advances per-shard cursors.
type ShardService struct {
	region     string
	newKinesis adaptor.KinesisClientFactory
	retry      *util.RetryPolicy
}

// NewShardService is constructor of ShardService
func NewShardService(region string, newKinesis adaptor.KinesisClientFactory, retry *util.RetryPolicy) *ShardService {
	if retry == nil {
		retry = util.NewRetryPolicy()
	}
	return &ShardService{
		region:     region,
		newKinesis: newKinesis,
		retry:      retry,
	}
}

// ListShards returns shard IDs of the stream in enumeration order. Each DescribeStream
// call is retried by the retry policy. ErrStreamUnavailable is returned after exhausted retries.
func (x *ShardService) ListShards(streamName string) ([]string, error) {
	client := x.newKinesis(x.region)
	var shardIDs []string
	var startShardID *string

	for {
		var desc *kinesis.StreamDescription
		err := x.retry.Run(func(seq int) error {
			output, err := client.DescribeStream(&kinesis.DescribeStreamInput{
				StreamName:            aws.String(streamName),
				ExclusiveStartShardId: startShardID,
			})
			if err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"seq":    seq,
					"stream": streamName,
				}).Warn("Fail to describe stream")
				return err
			}
			desc = output.StreamDescription
			return nil
		})
		if err != nil {
			return nil, newError(ErrStreamUnavailable, err, "Fail to list shards of %s", streamName)
		}

		for _, shard := range desc.Shards {
			shardIDs = append(shardIDs, aws.StringValue(shard.ShardId))
		}

		if !aws.BoolValue(desc.HasMoreShards) || len(desc.Shards) == 0 {
			break
		}
		startShardID = desc.Shards[len(desc.Shards)-1].ShardId
	}

	logger.WithFields(logrus.Fields{
		"stream": streamName,
		"shards": shardIDs,
	}).Debug("Listed shards")

	return shardIDs, nil
}

// OpenCursor creates a cursor at the oldest retained record of the shard.
func (x *ShardService) OpenCursor(streamName, shardID string) (*models.Cursor, error) {
	cursor := &models.Cursor{
		StreamName: streamName,
		ShardID:    shardID,
	}
	client := x.newKinesis(x.region)

	err := x.retry.Run(func(seq int) error {
		iter, err := getIterator(client, cursor)
		if err != nil {
			return err
		}
		cursor.Iterator = iter
		return nil
	})
	if err != nil {
		return nil, newError(ErrStreamUnavailable, err, "Fail to open cursor of %s/%s", streamName, shardID)
	}

	return cursor, nil
}

// getIterator resolves shard iterator after the last read record, or at TRIM_HORIZON if
// the cursor has read nothing.
func getIterator(client adaptor.KinesisClient, cursor *models.Cursor) (*string, error) {
	input := &kinesis.GetShardIteratorInput{
		StreamName:        aws.String(cursor.StreamName),
		ShardId:           aws.String(cursor.ShardID),
		ShardIteratorType: aws.String(kinesis.ShardIteratorTypeTrimHorizon),
	}
	if cursor.LastSequenceNumber != "" {
		input.ShardIteratorType = aws.String(kinesis.ShardIteratorTypeAfterSequenceNumber)
		input.StartingSequenceNumber = aws.String(cursor.LastSequenceNumber)
	}

	output, err := client.GetShardIterator(input)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"stream": cursor.StreamName,
			"shard":  cursor.ShardID,
			"type":   aws.StringValue(input.ShardIteratorType),
		}).Warn("Fail to get shard iterator")
		return nil, err
	}
	return output.ShardIterator, nil
}

// Advance reads up to limit records from the cursor position and returns them with the next
// cursor. The given cursor is not modified. When GetRecords fails, the iterator is re-resolved
// from the last read sequence number and the poll is retried.
func (x *ShardService) Advance(cursor *models.Cursor, limit int) ([]models.StreamRecord, *models.Cursor, error) {
	if cursor.Closed() {
		return nil, cursor, nil
	}
	if limit <= 0 || limit > maxGetRecordsLimit {
		limit = maxGetRecordsLimit
	}

	client := x.newKinesis(x.region)
	next := *cursor
	var output *kinesis.GetRecordsOutput

	err := x.retry.Run(func(seq int) error {
		if seq > 0 {
			iter, err := getIterator(client, &next)
			if err != nil {
				return err
			}
			next.Iterator = iter
		}

		resp, err := client.GetRecords(&kinesis.GetRecordsInput{
			ShardIterator: next.Iterator,
			Limit:         aws.Int64(int64(limit)),
		})
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"seq":    seq,
				"stream": next.StreamName,
				"shard":  next.ShardID,
			}).Warn("Fail to get records")
			return err
		}
		output = resp
		return nil
	})
	if err != nil {
		return nil, nil, newError(ErrStreamUnavailable, err, "Fail to read shard %s/%s", cursor.StreamName, cursor.ShardID)
	}

	records := make([]models.StreamRecord, len(output.Records))
	for i, r := range output.Records {
		records[i] = models.StreamRecord{
			Data:           r.Data,
			PartitionKey:   aws.StringValue(r.PartitionKey),
			ShardID:        next.ShardID,
			SequenceNumber: aws.StringValue(r.SequenceNumber),
		}
	}

	next.Iterator = output.NextShardIterator
	next.MillisBehindLatest = aws.Int64Value(output.MillisBehindLatest)
	if len(records) > 0 {
		next.LastSequenceNumber = records[len(records)-1].SequenceNumber
	}

	return records, &next, nil
}

package service

import (
	"time"

	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/sirupsen/logrus"
)

// Default values of StreamReader
const (
	DefaultPollLimit      = 100
	DefaultEmptyPollDelay = time.Second
	DefaultMaxEmptyPolls  = 3
)

// StreamReader reads records of all shards up to a record budget.
type StreamReader struct {
	shards *ShardService

	// PollLimit is maximum number of records of one GetRecords call.
	PollLimit int
	// EmptyPollDelay is wait time before polling a shard again after an empty poll.
	EmptyPollDelay time.Duration
	// MaxEmptyPolls is number of consecutive empty polls to give up a shard.
	MaxEmptyPolls int
	Sleep         func(time.Duration)
}

// NewStreamReader is constructor of StreamReader
func NewStreamReader(shards *ShardService) *StreamReader {
	return &StreamReader{
		shards:         shards,
		PollLimit:      DefaultPollLimit,
		EmptyPollDelay: DefaultEmptyPollDelay,
		MaxEmptyPolls:  DefaultMaxEmptyPolls,
		Sleep:          time.Sleep,
	}
}

// Read reads at most recordLimit records. Shards are read in enumeration order and records
// of one shard keep their order. A shard is finished when it is closed, caught up or the
// budget is used up. Payload decode failure is stored in ReadResult.Err and does not stop
// reading. Cursors are discarded when Read returns.
func (x *StreamReader) Read(streamName string, recordLimit int) ([]*models.ReadResult, error) {
	var results []*models.ReadResult
	if recordLimit <= 0 {
		return results, nil
	}

	shardIDs, err := x.shards.ListShards(streamName)
	if err != nil {
		return nil, err
	}

	for _, shardID := range shardIDs {
		if len(results) >= recordLimit {
			break
		}

		cursor, err := x.shards.OpenCursor(streamName, shardID)
		if err != nil {
			return nil, err
		}

		shardResults, err := x.readShard(cursor, recordLimit-len(results), len(results))
		if err != nil {
			return nil, err
		}
		results = append(results, shardResults...)
	}

	var decodeErrors int
	for _, r := range results {
		if !r.OK() {
			decodeErrors++
		}
	}
	metrics.StreamRecordsRead.WithLabelValues(streamName, metrics.ResultOK).Add(float64(len(results) - decodeErrors))
	metrics.StreamRecordsRead.WithLabelValues(streamName, metrics.ResultDecodeError).Add(float64(decodeErrors))

	logger.WithFields(logrus.Fields{
		"stream":       streamName,
		"shards":       len(shardIDs),
		"records":      len(results),
		"decodeErrors": decodeErrors,
	}).Info("Read records from stream")

	return results, nil
}

func (x *StreamReader) readShard(cursor *models.Cursor, budget, offset int) ([]*models.ReadResult, error) {
	var results []*models.ReadResult
	emptyPolls := 0

	for !cursor.Closed() && len(results) < budget {
		limit := budget - len(results)
		if x.PollLimit > 0 && limit > x.PollLimit {
			limit = x.PollLimit
		}

		records, next, err := x.shards.Advance(cursor, limit)
		if err != nil {
			return nil, err
		}
		cursor = next

		if len(records) == 0 {
			emptyPolls++
			if cursor.Closed() || cursor.MillisBehindLatest == 0 || emptyPolls >= x.MaxEmptyPolls {
				break
			}
			x.sleep(x.EmptyPollDelay)
			continue
		}
		emptyPolls = 0

		for _, r := range records {
			results = append(results, decodeStreamRecord(r, offset+len(results)))
		}
	}

	return results, nil
}

func (x *StreamReader) sleep(d time.Duration) {
	if x.Sleep != nil {
		x.Sleep(d)
		return
	}
	time.Sleep(d)
}

func decodeStreamRecord(r models.StreamRecord, offset int) *models.ReadResult {
	result := &models.ReadResult{Raw: r}
	record, err := models.DecodeRecord(r.Data)
	if err != nil {
		result.Err = &models.DecodeError{
			ShardID:        r.ShardID,
			SequenceNumber: r.SequenceNumber,
			Offset:         offset,
			Err:            err,
		}
		return result
	}
	result.Record = record
	return result
}

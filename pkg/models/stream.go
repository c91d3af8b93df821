package models

import (
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// DefaultPartitionKey is used when a record has no partition key.
const DefaultPartitionKey = "default"

// StreamRecord is the across-the-wire representation of a stream record.
type StreamRecord struct {
	Data           []byte `json:"data"`
	PartitionKey   string `json:"partition_key"`
	ShardID        string `json:"shard_id,omitempty"`
	SequenceNumber string `json:"sequence_number,omitempty"`
}

// Cursor is a position in one shard. Iterator == nil means end of the shard.
type Cursor struct {
	StreamName string
	ShardID    string
	Iterator   *string
	// LastSequenceNumber is sequence number of the last record read by the cursor. It is
	// used to re-resolve the iterator after a transient failure.
	LastSequenceNumber string
	// MillisBehindLatest is reported by the last poll. Zero means the shard is caught up.
	MillisBehindLatest int64
}

// Closed returns true when no more records can be read from the shard.
func (x *Cursor) Closed() bool {
	return x == nil || x.Iterator == nil
}

// ReadResult is outcome of reading one stream record: decoded Record or DecodeError.
type ReadResult struct {
	Raw    StreamRecord
	Record *Record
	Err    *DecodeError
}

// OK returns true if the payload was decoded.
func (x *ReadResult) OK() bool { return x.Err == nil }

// DecodeError indicates a payload that can not be decoded. It is scoped to one record.
type DecodeError struct {
	ShardID        string
	SequenceNumber string
	Offset         int
	Err            error
}

func (x *DecodeError) Error() string {
	return fmt.Sprintf("Fail to decode record #%d (shard=%s, seq=%s): %v",
		x.Offset, x.ShardID, x.SequenceNumber, x.Err)
}

// Cause returns original error for github.com/pkg/errors
func (x *DecodeError) Cause() error { return x.Err }

// Unwrap returns original error for errors.Is and errors.As
func (x *DecodeError) Unwrap() error { return x.Err }

// NewStreamRecordFromKinesis converts a record of Kinesis event of Lambda. EventID of the
// event is "{shard ID}:{sequence number}".
func NewStreamRecordFromKinesis(record events.KinesisEventRecord) StreamRecord {
	shardID := record.EventID
	if idx := strings.Index(shardID, ":"); idx >= 0 {
		shardID = shardID[:idx]
	}

	return StreamRecord{
		Data:           record.Kinesis.Data,
		PartitionKey:   record.Kinesis.PartitionKey,
		ShardID:        shardID,
		SequenceNumber: record.Kinesis.SequenceNumber,
	}
}

package mock

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/m-mizutani/eventlake/internal/adaptor"
)

// KinesisShard is on memory shard. A closed shard returns nil NextShardIterator after the
// last record, an open shard keeps returning an iterator.
type KinesisShard struct {
	ID      string
	Closed  bool
	Records []*kinesis.Record
}

// KinesisStream is on memory stream
type KinesisStream struct {
	Name   string
	Shards []*KinesisShard
}

// KinesisClient is mock of AWS Kinesis SDK
type KinesisClient struct {
	Region  string
	Streams map[string]*KinesisStream

	// Number of calls that fail before a call succeeds.
	DescribeFailures   int
	GetRecordsFailures int
	PutFailures        int

	// PutRejects[n] is number of entries rejected by (n+1)th PutRecords call. Entries are
	// rejected from the head of the request.
	PutRejects []int

	// ShardPageSize limits number of shards in one DescribeStream response.
	ShardPageSize int

	DescribeCount          int
	GetShardIteratorInputs []*kinesis.GetShardIteratorInput
	GetRecordsInputs       []*kinesis.GetRecordsInput
	PutRecordsInputs       []*kinesis.PutRecordsInput

	seq int
}

// NewKinesisClient creates mock Kinesis client
func NewKinesisClient() *KinesisClient {
	return &KinesisClient{
		Streams: map[string]*KinesisStream{},
	}
}

// Factory returns the mock itself. It can be used as adaptor.KinesisClientFactory.
func (x *KinesisClient) Factory(region string) adaptor.KinesisClient {
	x.Region = region
	return x
}

// AddStream creates a stream having shards.
func (x *KinesisClient) AddStream(name string, shardIDs ...string) *KinesisStream {
	stream := &KinesisStream{Name: name}
	for _, id := range shardIDs {
		stream.Shards = append(stream.Shards, &KinesisShard{ID: id})
	}
	x.Streams[name] = stream
	return stream
}

// CloseShards marks all shards of the stream as closed.
func (x *KinesisClient) CloseShards(name string) {
	for _, shard := range x.Streams[name].Shards {
		shard.Closed = true
	}
}

// AddRecord appends a record to the shard and returns its sequence number.
func (x *KinesisClient) AddRecord(stream, shardID, partitionKey string, data []byte) string {
	shard := x.lookupShard(stream, shardID)
	if shard == nil {
		panic(fmt.Sprintf("no such shard: %s/%s", stream, shardID))
	}
	return x.appendRecord(shard, partitionKey, data)
}

// Records returns all records of the stream in shard order. It is helper for testing.
func (x *KinesisClient) Records(stream string) []*kinesis.Record {
	var records []*kinesis.Record
	if s, ok := x.Streams[stream]; ok {
		for _, shard := range s.Shards {
			records = append(records, shard.Records...)
		}
	}
	return records
}

func (x *KinesisClient) appendRecord(shard *KinesisShard, partitionKey string, data []byte) string {
	x.seq++
	seq := fmt.Sprintf("%020d", x.seq)
	shard.Records = append(shard.Records, &kinesis.Record{
		Data:                        data,
		PartitionKey:                aws.String(partitionKey),
		SequenceNumber:              aws.String(seq),
		ApproximateArrivalTimestamp: aws.Time(time.Now().UTC()),
	})
	return seq
}

func (x *KinesisClient) lookupShard(stream, shardID string) *KinesisShard {
	s, ok := x.Streams[stream]
	if !ok {
		return nil
	}
	for _, shard := range s.Shards {
		if shard.ID == shardID {
			return shard
		}
	}
	return nil
}

func notFound(name string) error {
	return awserr.New(kinesis.ErrCodeResourceNotFoundException, "no such stream or shard: "+name, nil)
}

// DescribeStream of mock returns shards with pagination by ShardPageSize.
func (x *KinesisClient) DescribeStream(input *kinesis.DescribeStreamInput) (*kinesis.DescribeStreamOutput, error) {
	x.DescribeCount++
	if x.DescribeFailures > 0 {
		x.DescribeFailures--
		return nil, awserr.New(kinesis.ErrCodeLimitExceededException, "mock describe failure", nil)
	}

	stream, ok := x.Streams[aws.StringValue(input.StreamName)]
	if !ok {
		return nil, notFound(aws.StringValue(input.StreamName))
	}

	shards := stream.Shards
	if start := aws.StringValue(input.ExclusiveStartShardId); start != "" {
		for i := range shards {
			if shards[i].ID == start {
				shards = shards[i+1:]
				break
			}
		}
	}

	hasMore := false
	if x.ShardPageSize > 0 && len(shards) > x.ShardPageSize {
		shards = shards[:x.ShardPageSize]
		hasMore = true
	}

	desc := &kinesis.StreamDescription{
		StreamName:    aws.String(stream.Name),
		StreamStatus:  aws.String(kinesis.StreamStatusActive),
		HasMoreShards: aws.Bool(hasMore),
	}
	for _, shard := range shards {
		desc.Shards = append(desc.Shards, &kinesis.Shard{ShardId: aws.String(shard.ID)})
	}

	return &kinesis.DescribeStreamOutput{StreamDescription: desc}, nil
}

func encodeIterator(stream, shardID string, pos int) *string {
	return aws.String(fmt.Sprintf("%s|%s|%d", stream, shardID, pos))
}

func decodeIterator(iter string) (string, string, int, error) {
	parts := strings.Split(iter, "|")
	if len(parts) != 3 {
		return "", "", 0, awserr.New(kinesis.ErrCodeInvalidArgumentException, "invalid iterator: "+iter, nil)
	}
	pos, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, awserr.New(kinesis.ErrCodeInvalidArgumentException, "invalid iterator: "+iter, nil)
	}
	return parts[0], parts[1], pos, nil
}

// GetShardIterator of mock supports TRIM_HORIZON, LATEST, AT_SEQUENCE_NUMBER and
// AFTER_SEQUENCE_NUMBER.
func (x *KinesisClient) GetShardIterator(input *kinesis.GetShardIteratorInput) (*kinesis.GetShardIteratorOutput, error) {
	x.GetShardIteratorInputs = append(x.GetShardIteratorInputs, input)

	streamName, shardID := aws.StringValue(input.StreamName), aws.StringValue(input.ShardId)
	shard := x.lookupShard(streamName, shardID)
	if shard == nil {
		return nil, notFound(streamName + "/" + shardID)
	}

	pos := 0
	switch aws.StringValue(input.ShardIteratorType) {
	case kinesis.ShardIteratorTypeTrimHorizon:
		pos = 0
	case kinesis.ShardIteratorTypeLatest:
		pos = len(shard.Records)
	case kinesis.ShardIteratorTypeAtSequenceNumber, kinesis.ShardIteratorTypeAfterSequenceNumber:
		seq := aws.StringValue(input.StartingSequenceNumber)
		pos = -1
		for i, r := range shard.Records {
			if aws.StringValue(r.SequenceNumber) == seq {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, awserr.New(kinesis.ErrCodeInvalidArgumentException, "no such sequence number: "+seq, nil)
		}
		if aws.StringValue(input.ShardIteratorType) == kinesis.ShardIteratorTypeAfterSequenceNumber {
			pos++
		}
	default:
		return nil, awserr.New(kinesis.ErrCodeInvalidArgumentException, "unsupported iterator type", nil)
	}

	return &kinesis.GetShardIteratorOutput{
		ShardIterator: encodeIterator(streamName, shardID, pos),
	}, nil
}

// GetRecords of mock returns records from position of the iterator.
func (x *KinesisClient) GetRecords(input *kinesis.GetRecordsInput) (*kinesis.GetRecordsOutput, error) {
	x.GetRecordsInputs = append(x.GetRecordsInputs, input)
	if x.GetRecordsFailures > 0 {
		x.GetRecordsFailures--
		return nil, awserr.New(kinesis.ErrCodeExpiredIteratorException, "mock expired iterator", nil)
	}

	streamName, shardID, pos, err := decodeIterator(aws.StringValue(input.ShardIterator))
	if err != nil {
		return nil, err
	}
	shard := x.lookupShard(streamName, shardID)
	if shard == nil {
		return nil, notFound(streamName + "/" + shardID)
	}

	limit := 10000
	if input.Limit != nil && *input.Limit > 0 {
		limit = int(*input.Limit)
	}

	end := pos + limit
	if end > len(shard.Records) {
		end = len(shard.Records)
	}
	if pos > end {
		pos = end
	}

	output := &kinesis.GetRecordsOutput{
		Records:            shard.Records[pos:end],
		MillisBehindLatest: aws.Int64(0),
	}
	if end < len(shard.Records) {
		output.MillisBehindLatest = aws.Int64(1000)
	}
	if !shard.Closed || end < len(shard.Records) {
		output.NextShardIterator = encodeIterator(streamName, shardID, end)
	}

	return output, nil
}

func shardIndex(partitionKey string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(partitionKey))
	return int(h.Sum32() % uint32(n))
}

// PutRecords of mock stores entries into shards selected by hash of partition key.
func (x *KinesisClient) PutRecords(input *kinesis.PutRecordsInput) (*kinesis.PutRecordsOutput, error) {
	callIndex := len(x.PutRecordsInputs)
	x.PutRecordsInputs = append(x.PutRecordsInputs, input)

	if x.PutFailures > 0 {
		x.PutFailures--
		return nil, awserr.New(kinesis.ErrCodeProvisionedThroughputExceededException, "mock put failure", nil)
	}

	stream, ok := x.Streams[aws.StringValue(input.StreamName)]
	if !ok || len(stream.Shards) == 0 {
		return nil, notFound(aws.StringValue(input.StreamName))
	}

	rejects := 0
	if callIndex < len(x.PutRejects) {
		rejects = x.PutRejects[callIndex]
	}

	output := &kinesis.PutRecordsOutput{}
	var failed int64
	for i, entry := range input.Records {
		if i < rejects {
			failed++
			output.Records = append(output.Records, &kinesis.PutRecordsResultEntry{
				ErrorCode:    aws.String(kinesis.ErrCodeProvisionedThroughputExceededException),
				ErrorMessage: aws.String("mock rejected entry"),
			})
			continue
		}

		shard := stream.Shards[shardIndex(aws.StringValue(entry.PartitionKey), len(stream.Shards))]
		seq := x.appendRecord(shard, aws.StringValue(entry.PartitionKey), entry.Data)
		output.Records = append(output.Records, &kinesis.PutRecordsResultEntry{
			SequenceNumber: aws.String(seq),
			ShardId:        aws.String(shard.ID),
		})
	}
	output.FailedRecordCount = aws.Int64(failed)

	return output, nil
}

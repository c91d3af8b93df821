package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReader(client *mock.KinesisClient) (*service.StreamReader, *[]time.Duration) {
	shards := service.NewShardService("test-region", client.Factory, util.NoWaitRetryPolicy())
	reader := service.NewStreamReader(shards)
	var waits []time.Duration
	reader.Sleep = func(d time.Duration) { waits = append(waits, d) }
	return reader, &waits
}

func addNumbered(client *mock.KinesisClient, stream, shard string, nums ...int) {
	for _, n := range nums {
		client.AddRecord(stream, shard, "k", []byte(fmt.Sprintf(`{"n":%d}`, n)))
	}
}

func TestListShards(t *testing.T) {
	t.Run("Follow pagination", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-0", "shard-1", "shard-2")
		client.ShardPageSize = 2
		shards := service.NewShardService("r", client.Factory, util.NoWaitRetryPolicy())

		ids, err := shards.ListShards("s1")
		require.NoError(tt, err)
		assert.Equal(tt, []string{"shard-0", "shard-1", "shard-2"}, ids)
		assert.Equal(tt, 2, client.DescribeCount)
	})

	t.Run("Retried describe succeeds", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-0")
		client.DescribeFailures = 2
		shards := service.NewShardService("r", client.Factory, util.NoWaitRetryPolicy())

		ids, err := shards.ListShards("s1")
		require.NoError(tt, err)
		assert.Equal(tt, []string{"shard-0"}, ids)
		assert.Equal(tt, 3, client.DescribeCount)
	})

	t.Run("StreamUnavailable after exactly 3 attempts and no read", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-0")
		addNumbered(client, "s1", "shard-0", 1)
		client.DescribeFailures = 10

		var waits []time.Duration
		policy := &util.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Sleep:       func(d time.Duration) { waits = append(waits, d) },
		}
		reader := service.NewStreamReader(service.NewShardService("r", client.Factory, policy))

		results, err := reader.Read("s1", 10)
		require.Error(tt, err)
		assert.True(tt, errors.Is(err, service.ErrStreamUnavailable))
		assert.Nil(tt, results)
		assert.Equal(tt, 3, client.DescribeCount)
		assert.Equal(tt, []time.Duration{time.Second, 2 * time.Second}, waits)
		assert.Equal(tt, 0, len(client.GetRecordsInputs))
	})
}

func TestStreamReader(t *testing.T) {
	t.Run("Budget across two shards keeps shard order", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A", "shard-B")
		addNumbered(client, "s1", "shard-A", 1, 2, 3)
		addNumbered(client, "s1", "shard-B", 4, 5)
		client.CloseShards("s1")
		reader, _ := newReader(client)

		results, err := reader.Read("s1", 4)
		require.NoError(tt, err)
		require.Equal(tt, 4, len(results))

		var got []string
		for _, r := range results {
			require.True(tt, r.OK())
			v, _ := r.Record.Get("n")
			got = append(got, fmt.Sprint(v))
		}
		assert.Equal(tt, []string{"1", "2", "3", "4"}, got)
		assert.Equal(tt, "shard-A", results[0].Raw.ShardID)
		assert.Equal(tt, "shard-B", results[3].Raw.ShardID)
		assert.Equal(tt, "k", results[3].Raw.PartitionKey)
	})

	t.Run("Limit reached in the middle of first shard", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A", "shard-B")
		addNumbered(client, "s1", "shard-A", 1, 2, 3)
		addNumbered(client, "s1", "shard-B", 4, 5)
		reader, _ := newReader(client)

		results, err := reader.Read("s1", 2)
		require.NoError(tt, err)
		require.Equal(tt, 2, len(results))
		for _, r := range results {
			assert.Equal(tt, "shard-A", r.Raw.ShardID)
		}
		// shard-B is never opened
		for _, input := range client.GetShardIteratorInputs {
			assert.Equal(tt, "shard-A", aws.StringValue(input.ShardId))
		}
	})

	t.Run("Never exceed budget with small poll limit", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A")
		for i := 0; i < 25; i++ {
			addNumbered(client, "s1", "shard-A", i)
		}
		reader, _ := newReader(client)
		reader.PollLimit = 10

		results, err := reader.Read("s1", 23)
		require.NoError(tt, err)
		assert.Equal(tt, 23, len(results))
		require.Equal(tt, 3, len(client.GetRecordsInputs))
		assert.Equal(tt, int64(10), *client.GetRecordsInputs[0].Limit)
		assert.Equal(tt, int64(3), *client.GetRecordsInputs[2].Limit)
	})

	t.Run("Decode failure does not abort batch", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A")
		addNumbered(client, "s1", "shard-A", 1)
		seq := client.AddRecord("s1", "shard-A", "k", []byte("not json"))
		addNumbered(client, "s1", "shard-A", 3)
		client.CloseShards("s1")
		reader, _ := newReader(client)

		results, err := reader.Read("s1", 10)
		require.NoError(tt, err)
		require.Equal(tt, 3, len(results))
		assert.True(tt, results[0].OK())
		assert.False(tt, results[1].OK())
		assert.Equal(tt, 1, results[1].Err.Offset)
		assert.Equal(tt, seq, results[1].Err.SequenceNumber)
		assert.Equal(tt, "shard-A", results[1].Err.ShardID)
		assert.Equal(tt, "not json", string(results[1].Raw.Data))
		assert.True(tt, results[2].OK())
	})

	t.Run("Caught up open shard stops without busy polling", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A")
		addNumbered(client, "s1", "shard-A", 1, 2)
		reader, waits := newReader(client)

		results, err := reader.Read("s1", 100)
		require.NoError(tt, err)
		assert.Equal(tt, 2, len(results))
		// one poll with records, one empty poll reporting caught up
		assert.Equal(tt, 2, len(client.GetRecordsInputs))
		assert.Equal(tt, 0, len(*waits))
	})

	t.Run("Zero limit reads nothing", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A")
		addNumbered(client, "s1", "shard-A", 1)
		reader, _ := newReader(client)

		results, err := reader.Read("s1", 0)
		require.NoError(tt, err)
		assert.Equal(tt, 0, len(results))
		assert.Equal(tt, 0, client.DescribeCount)
	})
}

func TestShardAdvance(t *testing.T) {
	t.Run("Re-resolve iterator after the last read record on failure", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A")
		addNumbered(client, "s1", "shard-A", 1, 2, 3)
		client.CloseShards("s1")
		shards := service.NewShardService("r", client.Factory, util.NoWaitRetryPolicy())

		cursor, err := shards.OpenCursor("s1", "shard-A")
		require.NoError(tt, err)

		records, cursor, err := shards.Advance(cursor, 2)
		require.NoError(tt, err)
		require.Equal(tt, 2, len(records))
		assert.Equal(tt, records[1].SequenceNumber, cursor.LastSequenceNumber)

		client.GetRecordsFailures = 1
		records, cursor, err = shards.Advance(cursor, 2)
		require.NoError(tt, err)
		require.Equal(tt, 1, len(records))
		assert.Equal(tt, `{"n":3}`, string(records[0].Data))
		assert.True(tt, cursor.Closed())

		last := client.GetShardIteratorInputs[len(client.GetShardIteratorInputs)-1]
		assert.Equal(tt, "AFTER_SEQUENCE_NUMBER", aws.StringValue(last.ShardIteratorType))
	})

	t.Run("Re-resolve from TRIM_HORIZON when nothing was read", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A")
		addNumbered(client, "s1", "shard-A", 1)
		shards := service.NewShardService("r", client.Factory, util.NoWaitRetryPolicy())

		cursor, err := shards.OpenCursor("s1", "shard-A")
		require.NoError(tt, err)
		client.GetRecordsFailures = 2
		records, _, err := shards.Advance(cursor, 10)
		require.NoError(tt, err)
		assert.Equal(tt, 1, len(records))
		require.Equal(tt, 3, len(client.GetShardIteratorInputs))
		assert.Equal(tt, "TRIM_HORIZON", aws.StringValue(client.GetShardIteratorInputs[2].ShardIteratorType))
	})

	t.Run("StreamUnavailable when GetRecords keeps failing", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("s1", "shard-A")
		shards := service.NewShardService("r", client.Factory, util.NoWaitRetryPolicy())

		cursor, err := shards.OpenCursor("s1", "shard-A")
		require.NoError(tt, err)
		client.GetRecordsFailures = 3
		_, _, err = shards.Advance(cursor, 10)
		require.Error(tt, err)
		assert.True(tt, errors.Is(err, service.ErrStreamUnavailable))
		assert.Equal(tt, 3, len(client.GetRecordsInputs))
	})

	t.Run("Closed cursor returns nothing", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		shards := service.NewShardService("r", client.Factory, util.NoWaitRetryPolicy())
		records, _, err := shards.Advance(nil, 10)
		require.NoError(tt, err)
		assert.Equal(tt, 0, len(records))
		assert.Equal(tt, 0, len(client.GetRecordsInputs))
	})
}

package service_test

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamRecords(n int) []models.StreamRecord {
	records := make([]models.StreamRecord, n)
	for i := range records {
		records[i] = models.StreamRecord{
			Data:         []byte(fmt.Sprintf(`{"n":%d}`, i)),
			PartitionKey: fmt.Sprintf("key-%d", i),
		}
	}
	return records
}

func TestStreamWriter(t *testing.T) {
	t.Run("Publish fails twice then succeeds at third attempt", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("out", "shard-0")
		client.PutFailures = 2
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())

		err := writer.Write("out", streamRecords(3))
		require.NoError(tt, err)
		assert.Equal(tt, 3, len(client.PutRecordsInputs))
		assert.Equal(tt, 3, len(client.Records("out")))
	})

	t.Run("Publish fails on all 3 attempts", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("out", "shard-0")
		client.PutFailures = 3
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())

		err := writer.Write("out", streamRecords(3))
		require.Error(tt, err)
		assert.True(tt, errors.Is(err, service.ErrWrite))
		assert.True(tt, errors.Is(err, util.ErrRetryLimitExceeded))
		assert.Equal(tt, 3, len(client.PutRecordsInputs))
		assert.Equal(tt, 0, len(client.Records("out")))
	})

	t.Run("Empty partition key becomes default", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("out", "shard-0")
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())

		err := writer.Write("out", []models.StreamRecord{{Data: []byte(`{}`)}})
		require.NoError(tt, err)
		require.Equal(tt, 1, len(client.PutRecordsInputs))
		assert.Equal(tt, "default", aws.StringValue(client.PutRecordsInputs[0].Records[0].PartitionKey))
	})

	t.Run("More than 500 records are refused without API call", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("out", "shard-0")
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())

		err := writer.Write("out", streamRecords(501))
		require.Error(tt, err)
		assert.True(tt, errors.Is(err, service.ErrWrite))
		assert.Equal(tt, 0, len(client.PutRecordsInputs))

		require.NoError(tt, writer.Write("out", streamRecords(500)))
	})

	t.Run("No records, no call", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())
		require.NoError(tt, writer.Write("out", nil))
		assert.Equal(tt, 0, len(client.PutRecordsInputs))
	})
}

// Entries rejected inside a successful PutRecords call are retried, and only the rejected
// entries are sent again. This deliberately differs from whole-call-only retry, which drops
// rejected entries silently. RetryRejectedOnly = false restores that behavior.
func TestStreamWriterRejectedEntries(t *testing.T) {
	t.Run("Only rejected subset is resent", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("out", "shard-0")
		client.PutRejects = []int{2, 1}
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())
		require.True(tt, writer.RetryRejectedOnly)

		err := writer.Write("out", streamRecords(5))
		require.NoError(tt, err)
		require.Equal(tt, 3, len(client.PutRecordsInputs))
		assert.Equal(tt, 5, len(client.PutRecordsInputs[0].Records))
		assert.Equal(tt, 2, len(client.PutRecordsInputs[1].Records))
		assert.Equal(tt, "key-0", aws.StringValue(client.PutRecordsInputs[1].Records[0].PartitionKey))
		assert.Equal(tt, "key-1", aws.StringValue(client.PutRecordsInputs[1].Records[1].PartitionKey))
		require.Equal(tt, 1, len(client.PutRecordsInputs[2].Records))
		assert.Equal(tt, "key-0", aws.StringValue(client.PutRecordsInputs[2].Records[0].PartitionKey))

		// every entry is delivered exactly once
		assert.Equal(tt, 5, len(client.Records("out")))
	})

	t.Run("Rejection in all attempts is WriteError", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("out", "shard-0")
		client.PutRejects = []int{1, 1, 1}
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())

		err := writer.Write("out", streamRecords(2))
		require.Error(tt, err)
		assert.True(tt, errors.Is(err, service.ErrWrite))
		assert.Equal(tt, 3, len(client.PutRecordsInputs))
	})

	t.Run("Whole-call-only retry ignores rejected entries", func(tt *testing.T) {
		client := mock.NewKinesisClient()
		client.AddStream("out", "shard-0")
		client.PutRejects = []int{2}
		writer := service.NewStreamWriter("r", client.Factory, util.NoWaitRetryPolicy())
		writer.RetryRejectedOnly = false

		err := writer.Write("out", streamRecords(5))
		require.NoError(tt, err)
		assert.Equal(tt, 1, len(client.PutRecordsInputs))
		assert.Equal(tt, 3, len(client.Records("out")))
	})
}

func TestSerialize(t *testing.T) {
	r1, err := models.DecodeRecord([]byte(`{"event_type":"click","b":1}`))
	require.NoError(t, err)
	r2, err := models.DecodeRecord([]byte(`{"b":2}`))
	require.NoError(t, err)

	records, err := service.Serialize([]*models.Record{r1, r2}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, len(records))
	assert.Equal(t, "click", records[0].PartitionKey)
	assert.Equal(t, `{"event_type":"click","b":1}`, string(records[0].Data))
	assert.Equal(t, "default", records[1].PartitionKey)
}

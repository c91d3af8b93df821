package pipeline_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/pipeline"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamJob(kinesis *mock.KinesisClient, s3client *mock.S3Client) *pipeline.StreamJob {
	shards := service.NewShardService("r", kinesis.Factory, util.NoWaitRetryPolicy())
	reader := service.NewStreamReader(shards)
	reader.Sleep = func(time.Duration) {}
	writer := service.NewStreamWriter("r", kinesis.Factory, util.NoWaitRetryPolicy())
	s3svc := service.NewS3Service(s3client.Factory, util.NoWaitRetryPolicy())

	job := pipeline.NewStreamJob(pipeline.StreamConfig{
		InputStream:  "input",
		OutputStream: "output",
		Processed:    models.NewS3Object("r", "job-bucket", "processed"),
		Quarantine:   models.NewS3Object("r", "job-bucket", "error/"),
	}, reader, writer, s3svc)
	job.Now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 123456000, time.UTC) }
	job.QuarantineWriter().NewFileID = func() string { return "e1" }
	return job
}

func setupStreams() *mock.KinesisClient {
	client := mock.NewKinesisClient()
	client.AddStream("input", "shard-0")
	client.AddStream("output", "shard-0")
	client.AddRecord("input", "shard-0", "click", []byte(`{"event_type":"click","value":3}`))
	client.AddRecord("input", "shard-0", "view", []byte(`{broken`))
	client.AddRecord("input", "shard-0", "view", []byte(`{"event_type":"view"}`))
	return client
}

func TestStreamJob(t *testing.T) {
	kinesis := setupStreams()
	s3client := mock.NewS3ClientWithStore()
	job := newStreamJob(kinesis, s3client)

	result, err := job.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, result.Read)
	assert.Equal(t, 2, result.Published)
	assert.Equal(t, 1, result.DecodeErrors)

	t.Run("Enriched records are published with original partition keys", func(tt *testing.T) {
		out := kinesis.Records("output")
		require.Equal(tt, 2, len(out))
		assert.Equal(tt, "click", aws.StringValue(out[0].PartitionKey))
		assert.Equal(tt, "view", aws.StringValue(out[1].PartitionKey))

		record, err := models.DecodeRecord(out[0].Data)
		require.NoError(tt, err)
		assert.True(tt, record.Has("processing_id"))
		assert.True(tt, record.Has("processed_at"))
		v, _ := record.Get("value_squared")
		assert.Equal(tt, "9", v.(interface{ String() string }).String())
	})

	t.Run("Processed records are stored by date", func(tt *testing.T) {
		assert.Equal(tt, "processed/2024/03/05/data_100000123456.json", result.ProcessedKey)
		raw, ok := s3client.Get("job-bucket", result.ProcessedKey)
		require.True(tt, ok)
		assert.Equal(tt, 2, len(strings.Split(strings.TrimSpace(string(raw)), "\n")))
	})

	t.Run("Undecodable payload is quarantined", func(tt *testing.T) {
		assert.Equal(tt, "error/part-e1.json", result.QuarantineKey)
		raw, ok := s3client.Get("job-bucket", "error/part-e1.json")
		require.True(tt, ok)
		assert.Contains(tt, string(raw), `"payload":"{broken"`)
		assert.Contains(tt, string(raw), `"reason":"error"`)
	})
}

func TestStreamJobPublishFailure(t *testing.T) {
	kinesis := setupStreams()
	kinesis.PutFailures = 3
	s3client := mock.NewS3ClientWithStore()
	job := newStreamJob(kinesis, s3client)

	_, err := job.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrWrite))
	assert.Equal(t, 3, len(kinesis.PutRecordsInputs))
	assert.Equal(t, 0, len(s3client.Keys("job-bucket")))
}

func TestStreamJobEmptyStream(t *testing.T) {
	kinesis := mock.NewKinesisClient()
	kinesis.AddStream("input", "shard-0")
	kinesis.AddStream("output", "shard-0")
	s3client := mock.NewS3ClientWithStore()
	job := newStreamJob(kinesis, s3client)

	result, err := job.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, result.Read)
	assert.Equal(t, 0, len(kinesis.PutRecordsInputs))
	assert.Equal(t, 0, len(s3client.Keys("job-bucket")))
}

func TestStreamJobHugeValue(t *testing.T) {
	kinesis := mock.NewKinesisClient()
	kinesis.AddStream("input", "shard-0")
	kinesis.AddStream("output", "shard-0")
	kinesis.AddRecord("input", "shard-0", "click", []byte(`{"event_type":"click","value":1e200}`))
	kinesis.AddRecord("input", "shard-0", "click", []byte(`{"event_type":"click","value":2}`))
	s3client := mock.NewS3ClientWithStore()
	job := newStreamJob(kinesis, s3client)

	result, err := job.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Published)

	out := kinesis.Records("output")
	require.Equal(t, 2, len(out))
	record, err := models.DecodeRecord(out[0].Data)
	require.NoError(t, err)
	assert.False(t, record.Has("value_squared"))
	assert.True(t, record.Has("processing_id"))
}

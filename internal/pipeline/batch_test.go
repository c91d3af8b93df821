package pipeline_test

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/klauspost/compress/gzip"
	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/pipeline"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawBucket = "raw-bucket"
const lakeBucket = "lake-bucket"

func sequentialID(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

type batchTestEnv struct {
	s3      *mock.S3Client
	glue    *mock.GlueClient
	s3svc   *service.S3Service
	catalog *service.CatalogService
}

func newBatchTestEnv() *batchTestEnv {
	s3client := mock.NewS3ClientWithStore()
	glue := mock.NewGlueClient()
	glue.AddTable("lake", "events", "s3://lake-bucket/events/",
		[][2]string{{"event_type", "string"}, {"timestamp", "string"}, {"user_id", "int"}, {"processing_id", "string"}},
		[][2]string{{"year", "int"}, {"month", "int"}, {"day", "int"}},
	)

	return &batchTestEnv{
		s3:      s3client,
		glue:    glue,
		s3svc:   service.NewS3Service(s3client.Factory, util.NoWaitRetryPolicy()),
		catalog: service.NewCatalogService("r", glue.Factory),
	}
}

func (x *batchTestEnv) pipeline(register bool) *pipeline.BatchPipeline {
	p := pipeline.NewBatchPipeline(pipeline.BatchConfig{
		Database:           "lake",
		Table:              "events",
		Quarantine:         models.NewS3Object("r", lakeBucket, "quarantine/"),
		RegisterPartitions: register,
	}, x.s3svc, x.catalog, nil)
	p.ParquetWriter().NewFileID = sequentialID("p")
	p.QuarantineWriter().NewFileID = sequentialID("q")
	p.Enricher.NewID = func() string { return "batch-id" }
	p.Enricher.Now = func() time.Time { return time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC) }
	return p
}

func (x *batchTestEnv) putRawObjects() {
	x.s3.Put(rawBucket, "raw/click/a.json", []byte(
		`{"event_type":"click","timestamp":"2024-03-05T10:00:00Z","user":{"id":7,"name":"A"}}`))
	x.s3.Put(rawBucket, "raw/unknown/b.json", []byte(`{"user":{"id":1}}`))
	x.s3.Put(rawBucket, "raw/view/c.json", []byte(
		`{"event_type":"view","timestamp":"2024-03-06T01:00:00Z","user":{"id":8}}`+"\n"+
			`{"event_type":"view","timestamp":"2024-03-06T02:00:00Z","user":{"id":9}}`))
	x.s3.Put(rawBucket, "raw/README.txt", []byte("not a record"))
}

func TestBatchPipeline(t *testing.T) {
	env := newBatchTestEnv()
	env.putRawObjects()
	p := env.pipeline(true)

	src, err := pipeline.NewSource("s3://raw-bucket/raw/", "r", env.s3svc)
	require.NoError(t, err)

	result, err := p.Run(src)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Input)
	assert.Equal(t, 3, result.Valid)
	assert.Equal(t, 1, result.Invalid)

	t.Run("Invalid record is quarantined as it was read", func(tt *testing.T) {
		assert.Equal(tt, "quarantine/part-q1.json", result.QuarantineKey)
		raw, ok := env.s3.Get(lakeBucket, "quarantine/part-q1.json")
		require.True(tt, ok)
		assert.Equal(tt, `{"user":{"id":1}}`, strings.TrimSpace(string(raw)))
	})

	t.Run("Valid records are written per partition under table location", func(tt *testing.T) {
		assert.Equal(tt, []string{
			"events/event_type=click/year=2024/month=3/day=5/part-p1.snappy.parquet",
			"events/event_type=view/year=2024/month=3/day=6/part-p2.snappy.parquet",
		}, result.ParquetKeys)

		for _, key := range result.ParquetKeys {
			raw, ok := env.s3.Get(lakeBucket, key)
			require.True(tt, ok, key)
			assert.True(tt, bytes.HasPrefix(raw, []byte("PAR1")))
		}
	})

	t.Run("Partitions are registered", func(tt *testing.T) {
		require.Equal(tt, 2, len(env.glue.CreatePartitionInputs))
		assert.Equal(tt, []string{
			"event_type=click/year=2024/month=3/day=5",
			"event_type=view/year=2024/month=3/day=6",
		}, result.Partitions)
	})
}

func TestBatchPipelineSchemaFetchFailure(t *testing.T) {
	env := newBatchTestEnv()
	env.putRawObjects()
	env.glue.GetTableErr = awserr.New("RequestError", "connection refused", nil)
	p := env.pipeline(false)

	src, err := pipeline.NewSource("s3://raw-bucket/raw/", "r", env.s3svc)
	require.NoError(t, err)

	result, err := p.Run(src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrSchemaFetch))
	assert.Equal(t, 0, len(env.s3.Keys(lakeBucket)))
	assert.Equal(t, 3, result.Valid)
	assert.Equal(t, 1, result.Invalid)
}

func TestBatchPipelineReadFailure(t *testing.T) {
	env := newBatchTestEnv()
	p := env.pipeline(false)

	src, err := pipeline.NewSource("s3://raw-bucket/raw/nothing.json", "r", env.s3svc)
	require.NoError(t, err)

	_, err = p.Run(src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrObjectStore))
	assert.Equal(t, 0, len(env.s3.Keys(lakeBucket)))
}

func TestBatchPipelineAllInvalid(t *testing.T) {
	env := newBatchTestEnv()
	env.s3.Put(rawBucket, "raw/x.json", []byte(`[{"a":1},{"event_type":"click"}]`))
	p := env.pipeline(true)

	src, err := pipeline.NewSource("s3://raw-bucket/raw/x.json", "r", env.s3svc)
	require.NoError(t, err)

	result, err := p.Run(src)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Invalid)
	assert.Equal(t, 0, len(result.ParquetKeys))
	assert.Equal(t, 0, len(env.glue.CreatePartitionInputs))
	assert.Equal(t, []string{"quarantine/part-q1.json"}, env.s3.Keys(lakeBucket))
}

func TestFileSource(t *testing.T) {
	fd, err := ioutil.TempFile("", "*.json.gz")
	require.NoError(t, err)
	defer os.Remove(fd.Name())

	gw := gzip.NewWriter(fd)
	_, err = gw.Write([]byte("{\"a\":1}\n{\"a\":2}\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fd.Close())

	src, err := pipeline.NewSource(fd.Name(), "r", nil)
	require.NoError(t, err)
	records, err := src.Load()
	require.NoError(t, err)
	require.Equal(t, 2, len(records))
	v, _ := records[1].Get("a")
	assert.Equal(t, "2", fmt.Sprint(v))

	_, err = pipeline.NewSource("s3://", "r", nil)
	assert.Error(t, err)
}

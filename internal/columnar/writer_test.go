package columnar_test

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/internal/columnar"
	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/transform"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRow(eventType string, year int, id string) *transform.Row {
	r := models.NewRecord()
	r.Set("event_id", id)
	r.Set("event_type", eventType)
	r.Set("value", json.Number("1.5"))
	y, m, d := year, 3, 5
	return &transform.Row{
		Current:  r,
		Original: r.Copy(),
		Partition: models.Partition{
			EventType: &eventType,
			Year:      &y,
			Month:     &m,
			Day:       &d,
		},
	}
}

func sequentialID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("f%d", n)
	}
}

func TestParquetWriter(t *testing.T) {
	client := mock.NewS3ClientWithStore()
	s3svc := service.NewS3Service(client.Factory, util.NoWaitRetryPolicy())
	w := columnar.NewParquetWriter(s3svc)
	w.NewFileID = sequentialID()

	schema := &models.TableSchema{
		Database: "db",
		Table:    "events",
		Columns: []models.Column{
			{Name: "event_id", Type: "string"},
			{Name: "value", Type: "double"},
			{Name: "event_type", Type: "string"},
			{Name: "year", Type: "int"},
		},
		PartitionKeys: []string{"event_type", "year"},
	}

	rows := []*transform.Row{
		newRow("click", 2024, "a"),
		newRow("view", 2024, "b"),
		newRow("click", 2024, "c"),
	}

	dst := models.NewS3Object("r", "lake", "processed/")
	locs, err := w.Write(rows, schema, dst)
	require.NoError(t, err)
	require.Equal(t, 2, len(locs))

	assert.Equal(t, "processed/event_type=click/year=2024/month=3/day=5/part-f1.snappy.parquet", locs[0].S3Key())
	assert.Equal(t, "processed/event_type=view/year=2024/month=3/day=5/part-f2.snappy.parquet", locs[1].S3Key())

	for _, loc := range locs {
		raw, ok := client.Get("lake", loc.S3Key())
		require.True(t, ok, loc.S3Key())
		require.True(t, len(raw) > 8)
		assert.Equal(t, "PAR1", string(raw[:4]))
		assert.Equal(t, "PAR1", string(raw[len(raw)-4:]))
	}

	t.Run("Nothing is written for no rows", func(tt *testing.T) {
		locs, err := w.Write(nil, schema, dst)
		require.NoError(tt, err)
		assert.Equal(tt, 0, len(locs))
		assert.Equal(tt, 2, len(client.Keys("lake")))
	})

	t.Run("Writing again never overwrites existing objects", func(tt *testing.T) {
		_, err := w.Write(rows[:1], schema, dst)
		require.NoError(tt, err)
		assert.Equal(tt, 3, len(client.Keys("lake")))
	})

	t.Run("Upload failure is returned", func(tt *testing.T) {
		client.PutFailures = 10
		defer func() { client.PutFailures = 0 }()
		_, err := w.Write(rows, schema, dst)
		assert.Error(tt, err)
	})
}

func TestJSONLinesWriter(t *testing.T) {
	client := mock.NewS3ClientWithStore()
	s3svc := service.NewS3Service(client.Factory, util.NoWaitRetryPolicy())

	records := []*models.Record{newRow("click", 2024, "a").Original, newRow("view", 2024, "b").Original}

	t.Run("Append writes one object per call", func(tt *testing.T) {
		w := columnar.NewQuarantineWriter(s3svc)
		w.NewFileID = sequentialID()

		obj, err := w.Append(columnar.RecordValues(records), models.NewS3Object("r", "lake", "quarantine"))
		require.NoError(tt, err)
		require.NotNil(tt, obj)
		assert.Equal(tt, "quarantine/part-f1.json", obj.Key)

		raw, ok := client.Get("lake", obj.Key)
		require.True(tt, ok)
		lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
		require.Equal(tt, 2, len(lines))
		assert.Contains(tt, lines[0], `"event_id":"a"`)
		assert.Contains(tt, lines[1], `"event_id":"b"`)
	})

	t.Run("Append skips empty values", func(tt *testing.T) {
		w := columnar.NewQuarantineWriter(s3svc)
		obj, err := w.Append(nil, models.NewS3Object("r", "lake", "empty/"))
		require.NoError(tt, err)
		assert.Nil(tt, obj)
	})

	t.Run("Gzip encoder", func(tt *testing.T) {
		w := columnar.NewJSONLinesWriter(s3svc, adaptor.NewJSONLinesGzipEncoder, "processed")
		w.NewFileID = sequentialID()

		obj, err := w.Append(columnar.RecordValues(records), models.NewS3Object("r", "lake", "gz/"))
		require.NoError(tt, err)
		assert.Equal(tt, "gz/part-f1.json.gz", obj.Key)

		raw, err := s3svc.ReadObject(*obj)
		require.NoError(tt, err)
		scanner := bufio.NewScanner(bytes.NewReader(raw))
		n := 0
		for scanner.Scan() {
			n++
		}
		assert.Equal(tt, 2, n)
	})
}

package service_test

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGlue() *mock.GlueClient {
	client := mock.NewGlueClient()
	client.AddTable("lake", "events", "s3://lake-bucket/events/",
		[][2]string{{"event_type", "string"}, {"timestamp", "string"}, {"user_id", "int"}},
		[][2]string{{"year", "int"}, {"month", "int"}, {"day", "int"}},
	)
	return client
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestCatalogGetSchema(t *testing.T) {
	t.Run("Columns then partition keys", func(tt *testing.T) {
		catalog := service.NewCatalogService("r", newGlue().Factory)
		schema, err := catalog.GetSchema("lake", "events")
		require.NoError(tt, err)
		assert.Equal(tt, []string{"event_type", "timestamp", "user_id", "year", "month", "day"}, schema.Names())
		assert.Equal(tt, []string{"year", "month", "day"}, schema.PartitionKeys)
		assert.Equal(tt, "s3://lake-bucket/events/", schema.Location)
		col, ok := schema.Lookup("user_id")
		require.True(tt, ok)
		assert.Equal(tt, "int", col.Type)
	})

	t.Run("Unreachable catalog", func(tt *testing.T) {
		client := newGlue()
		client.GetTableErr = awserr.New("RequestError", "connection refused", nil)
		catalog := service.NewCatalogService("r", client.Factory)

		_, err := catalog.GetSchema("lake", "events")
		require.Error(tt, err)
		assert.True(tt, errors.Is(err, service.ErrSchemaFetch))
	})

	t.Run("Missing table", func(tt *testing.T) {
		catalog := service.NewCatalogService("r", newGlue().Factory)
		_, err := catalog.GetSchema("lake", "nothing")
		require.Error(tt, err)
		assert.True(tt, errors.Is(err, service.ErrSchemaFetch))
	})
}

func TestPartitionService(t *testing.T) {
	client := newGlue()
	catalog := service.NewCatalogService("r", client.Factory)
	schema, err := catalog.GetSchema("lake", "events")
	require.NoError(t, err)

	loc := models.ParquetLocation{
		Region: "r",
		Bucket: "lake-bucket",
		Prefix: "events",
		Partition: models.Partition{
			EventType: strPtr("click"),
			Year:      intPtr(2024),
			Month:     intPtr(3),
			Day:       intPtr(5),
		},
		FileID: "x",
	}

	t.Run("Create partition once", func(tt *testing.T) {
		repo := mock.NewPartitionRepository()
		svc := service.NewPartitionService(catalog, repo)

		require.NoError(tt, svc.Register(schema, loc))
		require.NoError(tt, svc.Register(schema, loc))
		require.Equal(tt, 1, len(client.CreatePartitionInputs))

		input := client.CreatePartitionInputs[0]
		assert.Equal(tt, []string{"2024", "3", "5"}, aws.StringValueSlice(input.PartitionInput.Values))
		assert.Equal(tt, "s3://lake-bucket/events/event_type=click/year=2024/month=3/day=5/",
			aws.StringValue(input.PartitionInput.StorageDescriptor.Location))
		assert.Equal(tt, 1, repo.HeadCount)

		exists, err := repo.HeadPartition("lake.events/event_type=click/year=2024/month=3/day=5")
		require.NoError(tt, err)
		assert.True(tt, exists)
	})

	t.Run("AlreadyExists is tolerated", func(tt *testing.T) {
		svc := service.NewPartitionService(catalog, nil)
		require.NoError(tt, svc.Register(schema, loc))
		assert.Equal(tt, 2, len(client.CreatePartitionInputs))
	})
}

package repository_test

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/eventlake/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	region := os.Getenv("EVENTLAKE_TEST_REGION")
	table := os.Getenv("EVENTLAKE_TEST_TABLE")

	if region == "" || table == "" {
		t.Skip("Both of EVENTLAKE_TEST_REGION and EVENTLAKE_TEST_TABLE are required")
	}

	pkey := uuid.New().String()
	repo := repository.NewPartitionDynamoDB(region, table)
	has, err := repo.HeadPartition(pkey)
	require.NoError(t, err)
	assert.False(t, has)

	err = repo.PutPartition(pkey)
	require.NoError(t, err)
	err = repo.PutPartition(pkey)
	require.NoError(t, err)

	has, err = repo.HeadPartition(pkey)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRows(t *testing.T) {
	region := os.Getenv("EVENTLAKE_TEST_REGION")
	table := os.Getenv("EVENTLAKE_TEST_TABLE")

	if region == "" || table == "" {
		t.Skip("Both of EVENTLAKE_TEST_REGION and EVENTLAKE_TEST_TABLE are required")
	}

	repo := repository.NewRowDynamoDB(region, table, "pk", "sk")
	rows := []repository.Row{
		{"pk": "row:" + uuid.New().String(), "sk": "@", "total": 3.5},
		{"pk": "row:" + uuid.New().String(), "sk": "@", "name": nil},
	}
	require.NoError(t, repo.PutRows(rows))
}

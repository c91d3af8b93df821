package repository

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
	"github.com/pkg/errors"
)

// PartitionRepository keeps partitions already registered to catalog.
type PartitionRepository interface {
	HeadPartition(partitionKey string) (bool, error)
	PutPartition(partitionKey string) error
}

// PartitionDynamoDB is implementation of PartitionRepository
type PartitionDynamoDB struct {
	table dynamo.Table
}

type partitionItem struct {
	ExpiresAt int64  `dynamo:"expires_at"`
	PKey      string `dynamo:"pk"`
	SKey      string `dynamo:"sk"`
	CreatedAt int64  `dynamo:"created_at"`
}

// NewPartitionDynamoDB is a constructor of PartitionDynamoDB as PartitionRepository
func NewPartitionDynamoDB(region, tableName string) PartitionRepository {
	db := dynamo.New(session.New(), &aws.Config{Region: aws.String(region)})
	table := db.Table(tableName)

	return &PartitionDynamoDB{
		table: table,
	}
}

func toPartitionKey(partition string) string {
	return "partition:" + partition
}

// HeadPartition returns true if the partition has been put.
func (x *PartitionDynamoDB) HeadPartition(partitionKey string) (bool, error) {
	var result partitionItem
	pkey := toPartitionKey(partitionKey)
	if err := x.table.Get("pk", pkey).Range("sk", dynamo.Equal, "@").One(&result); err != nil {
		if err == dynamo.ErrNotFound {
			return false, nil
		}

		return false, errors.Wrapf(err, "Fail to get partition key: %s", pkey)
	}

	return true, nil
}

// PutPartition saves the partition. Putting an existing partition is not an error.
func (x *PartitionDynamoDB) PutPartition(partitionKey string) error {
	now := time.Now().UTC()
	item := partitionItem{
		ExpiresAt: now.Add(time.Hour * 24 * 365).Unix(),
		PKey:      toPartitionKey(partitionKey),
		SKey:      "@",
		CreatedAt: now.Unix(),
	}

	if err := x.table.Put(item).If("attribute_not_exists(pk)").Run(); err != nil {
		if isConditionalCheckErr(err) {
			return nil
		}
		return errors.Wrapf(err, "Fail to put parition key: %v", item)
	}

	return nil
}

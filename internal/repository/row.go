package repository

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
	"github.com/pkg/errors"
)

// Row is one item of a table. Values should be string, bool, int64, float64 or nil.
type Row map[string]interface{}

// RowRepository stores rows converted from a table file.
type RowRepository interface {
	PutRows(rows []Row) error
}

// RowDynamoDB is implementation of RowRepository. The table must have hash (and range) keys
// included in each row.
type RowDynamoDB struct {
	table    dynamo.Table
	hashKey  string
	rangeKey string
}

// NewRowDynamoDB is a constructor of RowDynamoDB as RowRepository. rangeKey can be empty.
func NewRowDynamoDB(region, tableName, hashKey, rangeKey string) RowRepository {
	db := dynamo.New(session.New(), &aws.Config{Region: aws.String(region)})
	return &RowDynamoDB{
		table:    db.Table(tableName),
		hashKey:  hashKey,
		rangeKey: rangeKey,
	}
}

// PutRows writes all rows by BatchWriteItem. Null values are omitted from items.
func (x *RowDynamoDB) PutRows(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	var items []interface{}
	for _, row := range rows {
		item := map[string]interface{}{}
		for k, v := range row {
			if v != nil {
				item[k] = v
			}
		}
		items = append(items, item)
	}

	var batch dynamo.Batch
	if x.rangeKey != "" {
		batch = x.table.Batch(x.hashKey, x.rangeKey)
	} else {
		batch = x.table.Batch(x.hashKey)
	}

	if n, err := batch.Write().Put(items...).Run(); err != nil {
		if isResourceNotFoundErr(err) {
			return errors.Wrap(err, "DynamoDB table for rows is not found")
		}
		return errors.Wrap(err, "Failed to put rows")
	} else if n != len(items) {
		return errors.Errorf("Failed to write all rows: %d/%d", n, len(items))
	}

	return nil
}

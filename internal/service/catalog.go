package service

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CatalogService is accessor to Glue Data Catalog. Table shape is never modified.
type CatalogService struct {
	region  string
	newGlue adaptor.GlueClientFactory
}

// NewCatalogService is constructor of CatalogService
func NewCatalogService(region string, newGlue adaptor.GlueClientFactory) *CatalogService {
	return &CatalogService{
		region:  region,
		newGlue: newGlue,
	}
}

// GetSchema fetches columns of the table. Columns of returned schema are data columns
// followed by partition keys. Any failure is ErrSchemaFetch.
func (x *CatalogService) GetSchema(database, table string) (*models.TableSchema, error) {
	client := x.newGlue(x.region)
	output, err := client.GetTable(&glue.GetTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(table),
	})
	if err != nil {
		return nil, newError(ErrSchemaFetch, err, "Fail to get table %s.%s", database, table)
	}
	if output.Table == nil || output.Table.StorageDescriptor == nil {
		return nil, newError(ErrSchemaFetch, nil, "Table %s.%s has no storage descriptor", database, table)
	}

	schema := &models.TableSchema{
		Database: database,
		Table:    table,
		Location: aws.StringValue(output.Table.StorageDescriptor.Location),
	}
	for _, col := range output.Table.StorageDescriptor.Columns {
		schema.Columns = append(schema.Columns, models.Column{
			Name: aws.StringValue(col.Name),
			Type: aws.StringValue(col.Type),
		})
	}
	for _, col := range output.Table.PartitionKeys {
		schema.Columns = append(schema.Columns, models.Column{
			Name: aws.StringValue(col.Name),
			Type: aws.StringValue(col.Type),
		})
		schema.PartitionKeys = append(schema.PartitionKeys, aws.StringValue(col.Name))
	}

	if len(schema.Columns) == 0 {
		return nil, newError(ErrSchemaFetch, nil, "Table %s.%s has no column", database, table)
	}

	logger.WithFields(logrus.Fields{
		"database": database,
		"table":    table,
		"columns":  schema.Names(),
	}).Debug("Fetched table schema")

	return schema, nil
}

// CreatePartition registers the partition directory of loc to the table. It returns false
// without error if the partition already exists.
func (x *CatalogService) CreatePartition(schema *models.TableSchema, loc models.ParquetLocation) (bool, error) {
	client := x.newGlue(x.region)

	_, err := client.CreatePartition(&glue.CreatePartitionInput{
		DatabaseName: aws.String(schema.Database),
		TableName:    aws.String(schema.Table),
		PartitionInput: &glue.PartitionInput{
			Values: aws.StringSlice(loc.PartitionValues(schema.PartitionKeys)),
			StorageDescriptor: &glue.StorageDescriptor{
				InputFormat:  aws.String("org.apache.hadoop.hive.ql.io.parquet.MapredParquetInputFormat"),
				OutputFormat: aws.String("org.apache.hadoop.hive.ql.io.parquet.MapredParquetOutputFormat"),
				SerdeInfo: &glue.SerDeInfo{
					Name:                 aws.String("parquet"),
					SerializationLibrary: aws.String("org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"),
				},
				Location: aws.String(loc.PartitionLocation()),
			},
		},
	})

	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == glue.ErrCodeAlreadyExistsException {
			logger.WithFields(logrus.Fields{
				"table":     schema.Table,
				"partition": loc.Partition.Path(),
			}).Debug("Partition already exists")
			return false, nil
		}
		return false, errors.Wrapf(err, "Fail to create partition %s of %s.%s", loc.Partition.Path(), schema.Database, schema.Table)
	}

	return true, nil
}

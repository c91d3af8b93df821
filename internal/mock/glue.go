package mock

import (
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/m-mizutani/eventlake/internal/adaptor"
)

// GlueClient is mock of AWS Glue SDK
type GlueClient struct {
	Region string
	Tables map[string]*glue.TableData

	// GetTableErr is returned by GetTable if it is not nil.
	GetTableErr error

	GetTableCount         int
	CreatePartitionInputs []*glue.CreatePartitionInput

	partitions map[string]struct{}
}

// NewGlueClient creates mock Glue client
func NewGlueClient() *GlueClient {
	return &GlueClient{
		Tables:     map[string]*glue.TableData{},
		partitions: map[string]struct{}{},
	}
}

// Factory returns the mock itself. It can be used as adaptor.GlueClientFactory.
func (x *GlueClient) Factory(region string) adaptor.GlueClient {
	x.Region = region
	return x
}

// AddTable registers a table. columns and partitionKeys are pairs of name and type.
func (x *GlueClient) AddTable(db, table, location string, columns, partitionKeys [][2]string) {
	toColumns := func(pairs [][2]string) []*glue.Column {
		var cols []*glue.Column
		for _, p := range pairs {
			cols = append(cols, &glue.Column{Name: aws.String(p[0]), Type: aws.String(p[1])})
		}
		return cols
	}

	x.Tables[db+"."+table] = &glue.TableData{
		DatabaseName: aws.String(db),
		Name:         aws.String(table),
		StorageDescriptor: &glue.StorageDescriptor{
			Columns:  toColumns(columns),
			Location: aws.String(location),
		},
		PartitionKeys: toColumns(partitionKeys),
	}
}

// GetTable of mock returns registered table.
func (x *GlueClient) GetTable(input *glue.GetTableInput) (*glue.GetTableOutput, error) {
	x.GetTableCount++
	if x.GetTableErr != nil {
		return nil, x.GetTableErr
	}

	table, ok := x.Tables[aws.StringValue(input.DatabaseName)+"."+aws.StringValue(input.Name)]
	if !ok {
		return nil, awserr.New(glue.ErrCodeEntityNotFoundException, "no such table", nil)
	}
	return &glue.GetTableOutput{Table: table}, nil
}

// CreatePartition of mock returns AlreadyExistsException for a partition created before.
func (x *GlueClient) CreatePartition(input *glue.CreatePartitionInput) (*glue.CreatePartitionOutput, error) {
	x.CreatePartitionInputs = append(x.CreatePartitionInputs, input)

	key := aws.StringValue(input.DatabaseName) + "." + aws.StringValue(input.TableName) + "/" +
		strings.Join(aws.StringValueSlice(input.PartitionInput.Values), "/")
	if _, ok := x.partitions[key]; ok {
		return nil, awserr.New(glue.ErrCodeAlreadyExistsException, "partition already exists", nil)
	}
	x.partitions[key] = struct{}{}

	return &glue.CreatePartitionOutput{}, nil
}

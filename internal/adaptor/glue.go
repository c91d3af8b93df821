package adaptor

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/glue"
)

// GlueClientFactory is interface GlueClient constructor
type GlueClientFactory func(region string) GlueClient

// GlueClient is interface of AWS SDK Glue. Only table lookup and partition creation are used.
type GlueClient interface {
	GetTable(*glue.GetTableInput) (*glue.GetTableOutput, error)
	CreatePartition(*glue.CreatePartitionInput) (*glue.CreatePartitionOutput, error)
}

// NewGlueClient creates actual AWS Glue SDK client
func NewGlueClient(region string) GlueClient {
	ssn := session.New(&aws.Config{Region: aws.String(region)})
	return glue.New(ssn)
}

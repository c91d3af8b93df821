package adaptor

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
)

// KinesisClientFactory is interface KinesisClient constructor
type KinesisClientFactory func(region string) KinesisClient

// KinesisClient is interface of AWS SDK Kinesis
type KinesisClient interface {
	DescribeStream(*kinesis.DescribeStreamInput) (*kinesis.DescribeStreamOutput, error)
	GetShardIterator(*kinesis.GetShardIteratorInput) (*kinesis.GetShardIteratorOutput, error)
	GetRecords(*kinesis.GetRecordsInput) (*kinesis.GetRecordsOutput, error)
	PutRecords(*kinesis.PutRecordsInput) (*kinesis.PutRecordsOutput, error)
}

// NewKinesisClient creates actual AWS Kinesis SDK client
func NewKinesisClient(region string) KinesisClient {
	ssn := session.New(&aws.Config{Region: aws.String(region)})
	return kinesis.New(ssn)
}

package handler

import (
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	json "github.com/goccy/go-json"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/internal/repository"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
)

// Arguments has environment variables, Event record and adaptor
type Arguments struct {
	EnvVars
	Event interface{}

	NewS3         adaptor.S3ClientFactory        `json:"-"`
	NewKinesis    adaptor.KinesisClientFactory   `json:"-"`
	NewGlue       adaptor.GlueClientFactory      `json:"-"`
	NewSES        adaptor.SESClientFactory       `json:"-"`
	PartitionRepo repository.PartitionRepository `json:"-"`
	RowRepo       repository.RowRepository       `json:"-"`
	Retry         *util.RetryPolicy              `json:"-"`
}

// BindEvent directly decode event data and unmarshal to ev object.
func (x *Arguments) BindEvent(ev interface{}) error {
	raw, err := json.Marshal(x.Event)
	if err != nil {
		Logger.WithField("event", x.Event).Error("json.Marshal")
		return errors.Wrap(err, "Failed to marshal lambda event in BindEvent")
	}

	if err := json.Unmarshal(raw, ev); err != nil {
		Logger.WithField("raw", string(raw)).Error("json.Unmarshal")
		return errors.Wrap(err, "Failed json.Unmarshal in BindEvent")
	}

	return nil
}

// DecapKinesisEvent extracts stream records from KinesisEvent
func (x *Arguments) DecapKinesisEvent() ([]models.StreamRecord, error) {
	var ev events.KinesisEvent
	if err := x.BindEvent(&ev); err != nil {
		return nil, err
	}

	records := make([]models.StreamRecord, len(ev.Records))
	for i, r := range ev.Records {
		records[i] = models.NewStreamRecordFromKinesis(r)
	}
	return records, nil
}

// DecapS3Event extracts objects from S3 event notification
func (x *Arguments) DecapS3Event() ([]models.S3Object, error) {
	var ev events.S3Event
	if err := x.BindEvent(&ev); err != nil {
		return nil, err
	}

	objects := make([]models.S3Object, len(ev.Records))
	for i, r := range ev.Records {
		objects[i] = models.NewS3ObjectFromRecord(r)
	}
	return objects, nil
}

// RegisterPartitionsEnabled parses REGISTER_PARTITIONS. Empty is false.
func (x *Arguments) RegisterPartitionsEnabled() (bool, error) {
	if x.RegisterPartitions == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(x.RegisterPartitions)
	if err != nil {
		return false, errors.Wrapf(err, "Invalid REGISTER_PARTITIONS: %s", x.RegisterPartitions)
	}
	return v, nil
}

func (x *Arguments) retry() *util.RetryPolicy {
	if x.Retry != nil {
		return x.Retry
	}
	return util.NewRetryPolicy()
}

func (x *Arguments) newS3() adaptor.S3ClientFactory {
	if x.NewS3 != nil {
		return x.NewS3
	}
	return adaptor.NewS3Client
}

func (x *Arguments) newKinesis() adaptor.KinesisClientFactory {
	if x.NewKinesis != nil {
		return x.NewKinesis
	}
	return adaptor.NewKinesisClient
}

func (x *Arguments) newGlue() adaptor.GlueClientFactory {
	if x.NewGlue != nil {
		return x.NewGlue
	}
	return adaptor.NewGlueClient
}

func (x *Arguments) newSES() adaptor.SESClientFactory {
	if x.NewSES != nil {
		return x.NewSES
	}
	return adaptor.NewSESClient
}

// S3Service provides service.S3Service with S3 adaptor
func (x *Arguments) S3Service() *service.S3Service {
	return service.NewS3Service(x.newS3(), x.retry())
}

// StreamWriter provides service.StreamWriter with Kinesis adaptor
func (x *Arguments) StreamWriter() *service.StreamWriter {
	return service.NewStreamWriter(x.AwsRegion, x.newKinesis(), x.retry())
}

// StreamReader provides service.StreamReader with Kinesis adaptor
func (x *Arguments) StreamReader() *service.StreamReader {
	return service.NewStreamReader(service.NewShardService(x.AwsRegion, x.newKinesis(), x.retry()))
}

// CatalogService provides service.CatalogService with Glue adaptor
func (x *Arguments) CatalogService() *service.CatalogService {
	return service.NewCatalogService(x.AwsRegion, x.newGlue())
}

// PartitionService provides PartitionService. DynamoDB is used as repository if
// PARTITION_TABLE_NAME is set.
func (x *Arguments) PartitionService() *service.PartitionService {
	repo := x.PartitionRepo
	if repo == nil && x.PartitionTableName != "" {
		repo = repository.NewPartitionDynamoDB(x.AwsRegion, x.PartitionTableName)
	}
	return service.NewPartitionService(x.CatalogService(), repo)
}

// NotifyService provides service.NotifyService with SES adaptor. nil is returned if
// SES_SENDER is not set.
func (x *Arguments) NotifyService() *service.NotifyService {
	if x.SESSender == "" {
		return nil
	}
	return service.NewNotifyService(x.AwsRegion, x.newSES(), x.SESSender)
}

// RowRepository provides DynamoDB row repository. nil is returned if DYNAMODB_TABLE is not set.
func (x *Arguments) RowRepository() repository.RowRepository {
	if x.RowRepo != nil {
		return x.RowRepo
	}
	if x.DynamoDBTable == "" {
		return nil
	}
	return repository.NewRowDynamoDB(x.AwsRegion, x.DynamoDBTable, x.DynamoDBHashKey, x.DynamoDBSortKey)
}

package testutil

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/m-mizutani/eventlake/pkg/models"
)

// EncapByKinesis encapslates payloads by events.KinesisEvent and returns it.
func EncapByKinesis(partitionKey string, payloads ...[]byte) *events.KinesisEvent {
	ev := &events.KinesisEvent{}
	for i, data := range payloads {
		ev.Records = append(ev.Records, events.KinesisEventRecord{
			EventID:     fmt.Sprintf("shardId-000000000000:%d", i),
			EventSource: "aws:kinesis",
			Kinesis: events.KinesisRecord{
				Data:           data,
				PartitionKey:   partitionKey,
				SequenceNumber: fmt.Sprintf("%020d", i),
			},
		})
	}
	return ev
}

// EncapByS3 encapslates objects by events.S3Event and returns it.
func EncapByS3(objects ...models.S3Object) *events.S3Event {
	ev := &events.S3Event{}
	for _, obj := range objects {
		ev.Records = append(ev.Records, events.S3EventRecord{
			EventSource: "aws:s3",
			AWSRegion:   obj.Region,
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: obj.Bucket},
				Object: events.S3Object{Key: obj.Key},
			},
		})
	}
	return ev
}

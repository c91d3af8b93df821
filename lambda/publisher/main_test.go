package main

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/m-mizutani/eventlake/internal/ingest"
	"github.com/m-mizutani/eventlake/internal/mock"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher(t *testing.T) {
	client := mock.NewKinesisClient()
	client.AddStream("downstream", "shard-0")

	args := handler.Arguments{
		EnvVars: handler.EnvVars{
			AwsRegion:         "ap-northeast-1",
			DownstreamStream:  "downstream",
			PartitionKeyQuery: ".user",
		},
		Event: map[string]interface{}{
			"records": []interface{}{
				map[string]interface{}{"event_type": "click", "user": "blue"},
				map[string]interface{}{"event_type": "view"},
			},
		},
		NewKinesis: client.Factory,
		Retry:      util.NoWaitRetryPolicy(),
	}

	resp, err := Handler(args)
	require.NoError(t, err)
	result := resp.(*ingest.PublishResult)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 0, result.FailedRecordCount)

	records := client.Records("downstream")
	require.Equal(t, 2, len(records))
	assert.Equal(t, "blue", aws.StringValue(records[0].PartitionKey))
	assert.Equal(t, "default", aws.StringValue(records[1].PartitionKey))

	t.Run("Stream name is required", func(tt *testing.T) {
		_, err := Handler(handler.Arguments{NewKinesis: client.Factory})
		require.Error(tt, err)
	})
}

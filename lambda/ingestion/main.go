package main

import (
	"github.com/m-mizutani/eventlake/internal/ingest"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
)

func main() {
	handler.StartLambda(Handler)
}

// Handler stores records of Kinesis event to raw or error bucket.
func Handler(args handler.Arguments) (interface{}, error) {
	if err := handler.RequireEnv(map[string]string{
		"RAW_BUCKET":   args.RawBucket,
		"ERROR_BUCKET": args.ErrorBucket,
	}); err != nil {
		return nil, err
	}

	records, err := args.DecapKinesisEvent()
	if err != nil {
		return nil, err
	}

	ingester := ingest.NewIngester(
		models.NewS3Object(args.AwsRegion, args.RawBucket, ""),
		models.NewS3Object(args.AwsRegion, args.ErrorBucket, ""),
		args.S3Service(),
	)
	return ingester.Ingest(records)
}

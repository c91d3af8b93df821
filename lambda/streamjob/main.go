package main

import (
	"github.com/m-mizutani/eventlake/internal/pipeline"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
)

// Key prefixes in S3_BUCKET
const (
	processedPrefix  = "processed"
	quarantinePrefix = "error/"
)

func main() {
	handler.StartLambda(Handler)
}

// Handler runs one StreamJob. It is invoked by schedule.
func Handler(args handler.Arguments) (interface{}, error) {
	if err := handler.RequireEnv(map[string]string{
		"INPUT_STREAM":  args.InputStream,
		"OUTPUT_STREAM": args.OutputStream,
		"S3_BUCKET":     args.S3Bucket,
	}); err != nil {
		return nil, err
	}

	job := pipeline.NewStreamJob(pipeline.StreamConfig{
		InputStream:  args.InputStream,
		OutputStream: args.OutputStream,
		Processed:    models.NewS3Object(args.AwsRegion, args.S3Bucket, processedPrefix),
		Quarantine:   models.NewS3Object(args.AwsRegion, args.S3Bucket, quarantinePrefix),
	}, args.StreamReader(), args.StreamWriter(), args.S3Service())

	return job.Run()
}

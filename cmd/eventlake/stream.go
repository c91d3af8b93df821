package main

import (
	"github.com/m-mizutani/eventlake/internal/pipeline"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
	cli "github.com/urfave/cli/v2"
)

func streamCommand(args *handler.Arguments) *cli.Command {
	var limit int

	return &cli.Command{
		Name:  "stream",
		Usage: "Read records from input stream, enrich and publish them to output stream once",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input-stream",
				Aliases:     []string{"i"},
				EnvVars:     []string{"INPUT_STREAM"},
				Required:    true,
				Destination: &args.InputStream,
			},
			&cli.StringFlag{
				Name:        "output-stream",
				Aliases:     []string{"o"},
				EnvVars:     []string{"OUTPUT_STREAM"},
				Required:    true,
				Destination: &args.OutputStream,
			},
			&cli.StringFlag{
				Name:        "bucket",
				Aliases:     []string{"b"},
				Usage:       "S3 bucket of processed records and errors",
				EnvVars:     []string{"S3_BUCKET"},
				Required:    true,
				Destination: &args.S3Bucket,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "Max number of records to read",
				Value:       pipeline.DefaultStreamReadLimit,
				Destination: &limit,
			},
		},
		Action: func(c *cli.Context) error {
			result, err := streamAction(*args, limit)
			if err != nil {
				return err
			}
			logger.WithField("result", result).Info("Done")
			return nil
		},
	}
}

func streamAction(args handler.Arguments, limit int) (*pipeline.StreamResult, error) {
	job := pipeline.NewStreamJob(pipeline.StreamConfig{
		InputStream:  args.InputStream,
		OutputStream: args.OutputStream,
		Processed:    models.NewS3Object(args.AwsRegion, args.S3Bucket, "processed"),
		Quarantine:   models.NewS3Object(args.AwsRegion, args.S3Bucket, "error/"),
		Limit:        limit,
	}, args.StreamReader(), args.StreamWriter(), args.S3Service())

	return job.Run()
}

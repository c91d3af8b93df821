package main

import (
	"github.com/m-mizutani/eventlake/internal/pipeline"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
	cli "github.com/urfave/cli/v2"
)

func enrichCommand(args *handler.Arguments) *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "Mark records of a JSON array object as enriched and write them to target object",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source-bucket",
				EnvVars:     []string{"SOURCE_BUCKET"},
				Required:    true,
				Destination: &args.SourceBucket,
			},
			&cli.StringFlag{
				Name:        "source-key",
				EnvVars:     []string{"SOURCE_KEY"},
				Required:    true,
				Destination: &args.SourceKey,
			},
			&cli.StringFlag{
				Name:        "target-bucket",
				EnvVars:     []string{"TARGET_BUCKET"},
				Required:    true,
				Destination: &args.TargetBucket,
			},
			&cli.StringFlag{
				Name:        "target-key",
				EnvVars:     []string{"TARGET_KEY"},
				Required:    true,
				Destination: &args.TargetKey,
			},
		},
		Action: func(c *cli.Context) error {
			result, err := enrichAction(*args)
			if err != nil {
				return err
			}
			logger.WithField("processed", result.Processed).Info("Done")
			return nil
		},
	}
}

func enrichAction(args handler.Arguments) (*pipeline.EnrichTaskResult, error) {
	if err := handler.RequireEnv(map[string]string{
		"SOURCE_BUCKET": args.SourceBucket,
		"SOURCE_KEY":    args.SourceKey,
		"TARGET_BUCKET": args.TargetBucket,
		"TARGET_KEY":    args.TargetKey,
	}); err != nil {
		return nil, err
	}

	task := pipeline.NewEnrichTask(args.S3Service())
	return task.Run(
		models.NewS3Object(args.AwsRegion, args.SourceBucket, args.SourceKey),
		models.NewS3Object(args.AwsRegion, args.TargetBucket, args.TargetKey),
	)
}

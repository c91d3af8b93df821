package main

import (
	"github.com/m-mizutani/eventlake/internal/convert"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"
)

func convertCommand(args *handler.Arguments) *cli.Command {
	var source string

	return &cli.Command{
		Name:  "convert",
		Usage: "Convert CSV object to parquet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source",
				Aliases:     []string{"s"},
				Usage:       "CSV object such as s3://my-bucket/data/sales.csv",
				Required:    true,
				Destination: &source,
			},
			&cli.StringFlag{
				Name:        "ses-sender",
				EnvVars:     []string{"SES_SENDER"},
				Destination: &args.SESSender,
			},
			&cli.StringFlag{
				Name:        "ses-recipient",
				Usage:       "Comma separated email addresses",
				EnvVars:     []string{"SES_RECIPIENT"},
				Destination: &args.SESRecipient,
			},
			&cli.StringFlag{
				Name:        "dynamodb-table",
				EnvVars:     []string{"DYNAMODB_TABLE"},
				Destination: &args.DynamoDBTable,
			},
			&cli.StringFlag{
				Name:        "dynamodb-hash-key",
				EnvVars:     []string{"DYNAMODB_HASH_KEY"},
				Destination: &args.DynamoDBHashKey,
			},
			&cli.StringFlag{
				Name:        "dynamodb-sort-key",
				EnvVars:     []string{"DYNAMODB_SORT_KEY"},
				Destination: &args.DynamoDBSortKey,
			},
		},
		Action: func(c *cli.Context) error {
			result, err := convertAction(*args, source)
			if err != nil {
				return err
			}
			logger.WithField("result", result).Info("Done")
			return nil
		},
	}
}

func convertAction(args handler.Arguments, source string) (*convert.Result, error) {
	src, err := models.ParseS3Path(args.AwsRegion, source)
	if err != nil {
		return nil, err
	}
	if src.IsPrefix() {
		return nil, errors.Errorf("Source must be an object: %s", source)
	}

	converter := convert.NewConverter(args.S3Service(), args.NotifyService(), args.RowRepository(), args.Recipients())
	return converter.Convert(*src)
}

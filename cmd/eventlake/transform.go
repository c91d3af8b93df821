package main

import (
	"github.com/m-mizutani/eventlake/internal/pipeline"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

type transformArguments struct {
	source   string
	register bool
}

func transformCommand(args *handler.Arguments) *cli.Command {
	var tfArgs transformArguments

	return &cli.Command{
		Name:  "transform",
		Usage: "Transform raw JSON records to partitioned parquet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source",
				Aliases:     []string{"s"},
				Usage:       "Raw object, prefix (s3://bucket/raw/) or local file",
				Required:    true,
				Destination: &tfArgs.source,
			},
			&cli.StringFlag{
				Name:        "database",
				Aliases:     []string{"d"},
				Usage:       "Catalog database name",
				EnvVars:     []string{"CATALOG_DATABASE"},
				Required:    true,
				Destination: &args.CatalogDatabase,
			},
			&cli.StringFlag{
				Name:        "table",
				Aliases:     []string{"t"},
				Usage:       "Catalog table name",
				EnvVars:     []string{"CATALOG_TABLE"},
				Required:    true,
				Destination: &args.CatalogTable,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Output S3 path such as s3://my-bucket/events/. Table location is used if empty",
				EnvVars:     []string{"OUTPUT_PATH"},
				Destination: &args.OutputPath,
			},
			&cli.StringFlag{
				Name:        "quarantine",
				Aliases:     []string{"q"},
				Usage:       "Quarantine S3 path such as s3://my-bucket/quarantine/",
				EnvVars:     []string{"QUARANTINE_PATH"},
				Required:    true,
				Destination: &args.QuarantinePath,
			},
			&cli.BoolFlag{
				Name:        "register-partitions",
				Usage:       "Create catalog partitions of written objects",
				Destination: &tfArgs.register,
			},
			&cli.StringFlag{
				Name:        "partition-table",
				Usage:       "DynamoDB table name to cache created partitions",
				EnvVars:     []string{"PARTITION_TABLE_NAME"},
				Destination: &args.PartitionTableName,
			},
		},
		Action: func(c *cli.Context) error {
			result, err := transformAction(*args, tfArgs)
			if err != nil {
				return err
			}
			logger.WithField("result", result).Info("Done")
			return nil
		},
	}
}

func transformAction(args handler.Arguments, tfArgs transformArguments) (*pipeline.BatchResult, error) {
	config := pipeline.BatchConfig{
		Database:           args.CatalogDatabase,
		Table:              args.CatalogTable,
		Output:             models.S3Object{Region: args.AwsRegion},
		RegisterPartitions: tfArgs.register,
	}

	quarantine, err := models.ParseS3Path(args.AwsRegion, args.QuarantinePath)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid quarantine path")
	}
	config.Quarantine = *quarantine

	if args.OutputPath != "" {
		output, err := models.ParseS3Path(args.AwsRegion, args.OutputPath)
		if err != nil {
			return nil, errors.Wrap(err, "Invalid output path")
		}
		config.Output = *output
	}

	var partitions *service.PartitionService
	if tfArgs.register {
		partitions = args.PartitionService()
	}

	s3Service := args.S3Service()
	src, err := pipeline.NewSource(tfArgs.source, args.AwsRegion, s3Service)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"source":   src.String(),
		"database": config.Database,
		"table":    config.Table,
	}).Info("Start transform")

	p := pipeline.NewBatchPipeline(config, s3Service, args.CatalogService(), partitions)
	return p.Run(src)
}

package main

import (
	"github.com/m-mizutani/eventlake/internal/pipeline"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/handler"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger = handler.Logger

func main() {
	handler.StartLambda(Handler)
}

func batchConfig(args handler.Arguments) (*pipeline.BatchConfig, error) {
	if err := handler.RequireEnv(map[string]string{
		"CATALOG_DATABASE": args.CatalogDatabase,
		"CATALOG_TABLE":    args.CatalogTable,
		"QUARANTINE_PATH":  args.QuarantinePath,
	}); err != nil {
		return nil, err
	}

	register, err := args.RegisterPartitionsEnabled()
	if err != nil {
		return nil, err
	}

	config := &pipeline.BatchConfig{
		Database:           args.CatalogDatabase,
		Table:              args.CatalogTable,
		Output:             models.S3Object{Region: args.AwsRegion},
		RegisterPartitions: register,
	}

	quarantine, err := models.ParseS3Path(args.AwsRegion, args.QuarantinePath)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid QUARANTINE_PATH")
	}
	config.Quarantine = *quarantine

	if args.OutputPath != "" {
		output, err := models.ParseS3Path(args.AwsRegion, args.OutputPath)
		if err != nil {
			return nil, errors.Wrap(err, "Invalid OUTPUT_PATH")
		}
		config.Output = *output
	}

	return config, nil
}

// Handler runs batch pipeline for each raw object of S3 event.
func Handler(args handler.Arguments) (interface{}, error) {
	config, err := batchConfig(args)
	if err != nil {
		return nil, err
	}

	objects, err := args.DecapS3Event()
	if err != nil {
		return nil, err
	}

	var partitions *service.PartitionService
	if config.RegisterPartitions {
		partitions = args.PartitionService()
	}

	s3Service := args.S3Service()
	p := pipeline.NewBatchPipeline(*config, s3Service, args.CatalogService(), partitions)

	var results []*pipeline.BatchResult
	for _, obj := range objects {
		if !pipeline.IsRawObjectKey(obj.Key) {
			logger.WithField("object", obj).Debug("Skip non raw object")
			continue
		}

		result, err := p.Run(pipeline.NewS3Source(obj, s3Service))
		if err != nil {
			return results, err
		}

		logger.WithFields(logrus.Fields{
			"source":  result.Source,
			"valid":   result.Valid,
			"invalid": result.Invalid,
		}).Info("Transformed raw object")
		results = append(results, result)
	}

	return results, nil
}

package pipeline

import (
	"github.com/m-mizutani/eventlake/internal/columnar"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/internal/transform"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BatchConfig is settings of BatchPipeline.
type BatchConfig struct {
	Database string
	Table    string

	// Output is key prefix of parquet objects. If Bucket is empty, location of the catalog
	// table is used.
	Output models.S3Object
	// Quarantine is key prefix of invalid records.
	Quarantine models.S3Object

	// RegisterPartitions creates catalog partitions of written parquet objects.
	RegisterPartitions bool
}

// BatchResult is outcome of one BatchPipeline run. Partitions has partition paths of all
// written parquet objects, whether or not they are registered to catalog.
type BatchResult struct {
	Source        string   `json:"source"`
	Input         int      `json:"input"`
	Valid         int      `json:"valid"`
	Invalid       int      `json:"invalid"`
	QuarantineKey string   `json:"quarantine_key,omitempty"`
	ParquetKeys   []string `json:"parquet_keys,omitempty"`
	Partitions    []string `json:"partitions,omitempty"`
}

// BatchPipeline transforms raw records into partitioned parquet objects. Stages run in fixed
// order without retry between stages and a failed stage aborts the run.
type BatchPipeline struct {
	config     BatchConfig
	catalog    *service.CatalogService
	partitions *service.PartitionService
	parquet    *columnar.ParquetWriter
	quarantine *columnar.JSONLinesWriter

	Enricher *transform.Enricher
}

// NewBatchPipeline is constructor of BatchPipeline. partitions is required only if
// config.RegisterPartitions is true.
func NewBatchPipeline(config BatchConfig, s3Service *service.S3Service, catalog *service.CatalogService, partitions *service.PartitionService) *BatchPipeline {
	if config.RegisterPartitions && partitions == nil {
		partitions = service.NewPartitionService(catalog, nil)
	}

	return &BatchPipeline{
		config:     config,
		catalog:    catalog,
		partitions: partitions,
		parquet:    columnar.NewParquetWriter(s3Service),
		quarantine: columnar.NewQuarantineWriter(s3Service),
		Enricher:   transform.NewEnricher(),
	}
}

// ParquetWriter returns the writer to replace file ID generator in test.
func (x *BatchPipeline) ParquetWriter() *columnar.ParquetWriter { return x.parquet }

// QuarantineWriter returns the writer to replace file ID generator in test.
func (x *BatchPipeline) QuarantineWriter() *columnar.JSONLinesWriter { return x.quarantine }

func (x *BatchPipeline) outputPrefix(schema *models.TableSchema) (models.S3Object, error) {
	if x.config.Output.Bucket != "" {
		return x.config.Output, nil
	}
	if schema.Location == "" {
		return models.S3Object{}, errors.Errorf("No output path and no location of table %s.%s", schema.Database, schema.Table)
	}

	obj, err := models.ParseS3Path(x.config.Output.Region, schema.Location)
	if err != nil {
		return models.S3Object{}, errors.Wrap(err, "Invalid table location")
	}
	return *obj, nil
}

// Run executes all stages for records of src.
func (x *BatchPipeline) Run(src RawSource) (*BatchResult, error) {
	result := &BatchResult{Source: src.String()}

	timer := stageTimer(StageRead)
	records, err := src.Load()
	timer.ObserveDuration()
	if err != nil {
		return result, errors.Wrapf(err, "Fail to read %s", src)
	}
	result.Input = len(records)

	rows := transform.NewRows(records)

	timer = stageTimer(StageFlatten)
	transform.FlattenRows(rows)
	timer.ObserveDuration()

	timer = stageTimer(StageEnrich)
	x.Enricher.EnrichBatch(rows)
	timer.ObserveDuration()

	timer = stageTimer(StagePartition)
	transform.AddPartitionFields(rows)
	timer.ObserveDuration()

	timer = stageTimer(StageSplit)
	valid, invalid := transform.Split(rows)
	timer.ObserveDuration()
	result.Valid, result.Invalid = len(valid), len(invalid)

	// Nothing is written until schema is available.
	timer = stageTimer(StageAlign)
	schema, err := x.catalog.GetSchema(x.config.Database, x.config.Table)
	if err != nil {
		timer.ObserveDuration()
		return result, err
	}
	transform.AlignRows(valid, schema)
	timer.ObserveDuration()

	output, err := x.outputPrefix(schema)
	if err != nil {
		return result, err
	}

	// Invalid rows are written before valid rows.
	timer = stageTimer(StageQuarantine)
	originals := make([]*models.Record, len(invalid))
	for i, row := range invalid {
		originals[i] = row.Original
	}
	quarantined, err := x.quarantine.Append(columnar.RecordValues(originals), x.config.Quarantine)
	timer.ObserveDuration()
	if err != nil {
		return result, errors.Wrap(err, "Fail to write invalid records")
	}
	if quarantined != nil {
		result.QuarantineKey = quarantined.Key
	}
	metrics.PipelineRows.WithLabelValues(metrics.RouteInvalid).Add(float64(len(invalid)))

	timer = stageTimer(StageParquet)
	locations, err := x.parquet.Write(valid, schema, output)
	timer.ObserveDuration()
	for _, loc := range locations {
		result.ParquetKeys = append(result.ParquetKeys, loc.S3Key())
		result.Partitions = append(result.Partitions, loc.Partition.Path())
	}
	if err != nil {
		return result, errors.Wrap(err, "Fail to write valid records")
	}
	metrics.PipelineRows.WithLabelValues(metrics.RouteValid).Add(float64(len(valid)))

	if x.config.RegisterPartitions {
		timer = stageTimer(StageRegister)
		for _, loc := range locations {
			if err := x.partitions.Register(schema, loc); err != nil {
				timer.ObserveDuration()
				return result, err
			}
		}
		timer.ObserveDuration()
	}

	logger.WithFields(logrus.Fields{
		"source":     result.Source,
		"input":      result.Input,
		"valid":      result.Valid,
		"invalid":    result.Invalid,
		"partitions": len(result.Partitions),
	}).Info("Done batch pipeline")

	return result, nil
}

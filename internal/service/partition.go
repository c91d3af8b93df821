package service

import (
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/m-mizutani/eventlake/internal/repository"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/sirupsen/logrus"
)

// PartitionService registers partitions to catalog only once. Registered partitions are
// remembered in the repository and in memory.
type PartitionService struct {
	catalog           *CatalogService
	repo              repository.PartitionRepository
	cachePartitionKey map[string]bool
}

// NewPartitionService is constructor of PartitionService. repo can be nil, then only
// in-memory cache is used.
func NewPartitionService(catalog *CatalogService, repo repository.PartitionRepository) *PartitionService {
	return &PartitionService{
		catalog:           catalog,
		repo:              repo,
		cachePartitionKey: make(map[string]bool),
	}
}

func partitionKey(schema *models.TableSchema, loc models.ParquetLocation) string {
	return schema.Database + "." + schema.Table + "/" + loc.Partition.Path()
}

// HeadPartition checks an existance of partition and cache the result.
func (x *PartitionService) HeadPartition(key string) (bool, error) {
	if exists, ok := x.cachePartitionKey[key]; ok && exists {
		return exists, nil
	}
	if x.repo == nil {
		return false, nil
	}

	exists, err := x.repo.HeadPartition(key)
	if err != nil {
		return false, err
	}
	x.cachePartitionKey[key] = exists
	return exists, nil
}

// Register creates the partition of loc in catalog if it is not registered yet.
func (x *PartitionService) Register(schema *models.TableSchema, loc models.ParquetLocation) error {
	key := partitionKey(schema, loc)
	exists, err := x.HeadPartition(key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	created, err := x.catalog.CreatePartition(schema, loc)
	if err != nil {
		return err
	}
	if created {
		metrics.PartitionsRegistered.Inc()
		logger.WithFields(logrus.Fields{
			"table":     schema.Table,
			"partition": loc.Partition.Path(),
		}).Info("Created partition")
	}

	if x.repo != nil {
		if err := x.repo.PutPartition(key); err != nil {
			return err
		}
	}
	x.cachePartitionKey[key] = true
	return nil
}

package mock

import (
	"github.com/m-mizutani/eventlake/internal/repository"
)

// PartitionRepository is on memory repository.PartitionRepository
type PartitionRepository struct {
	partitionMap map[string]bool
	HeadCount    int
}

// NewPartitionRepository creates mock of repository.PartitionRepository
func NewPartitionRepository() *PartitionRepository {
	return &PartitionRepository{
		partitionMap: make(map[string]bool),
	}
}

func (x *PartitionRepository) HeadPartition(partitionKey string) (bool, error) {
	x.HeadCount++
	if exists, ok := x.partitionMap[partitionKey]; ok {
		return exists, nil
	}
	return false, nil
}

func (x *PartitionRepository) PutPartition(partitionKey string) error {
	x.partitionMap[partitionKey] = true
	return nil
}

// RowRepository is on memory repository.RowRepository
type RowRepository struct {
	Rows []repository.Row
	Err  error
}

func (x *RowRepository) PutRows(rows []repository.Row) error {
	if x.Err != nil {
		return x.Err
	}
	x.Rows = append(x.Rows, rows...)
	return nil
}

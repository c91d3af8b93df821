package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Partition column names of the columnar store.
const (
	PartitionEventType = FieldEventType
	PartitionYear      = "year"
	PartitionMonth     = "month"
	PartitionDay       = "day"

	// HiveDefaultPartition is used as directory value of a null partition column.
	HiveDefaultPartition = "__HIVE_DEFAULT_PARTITION__"
)

// PartitionColumns is ordered partition columns of the columnar store.
var PartitionColumns = []string{PartitionEventType, PartitionYear, PartitionMonth, PartitionDay}

// Partition has partition values of one row. nil means null.
type Partition struct {
	EventType *string
	Year      *int
	Month     *int
	Day       *int
}

func intLabel(v *int) string {
	if v == nil {
		return HiveDefaultPartition
	}
	return strconv.Itoa(*v)
}

// Values returns directory values of partition columns.
func (x Partition) Values() map[string]string {
	eventType := HiveDefaultPartition
	if x.EventType != nil && *x.EventType != "" {
		eventType = escapePathName(*x.EventType)
	}

	return map[string]string{
		PartitionEventType: eventType,
		PartitionYear:      intLabel(x.Year),
		PartitionMonth:     intLabel(x.Month),
		PartitionDay:       intLabel(x.Day),
	}
}

// escapePathName escapes characters that can not be in a partition directory name in the
// same way as Hive.
func escapePathName(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if c < 0x20 || c == 0x7F || strings.IndexByte("\"#%'*/:=?\\{[]^", c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Path returns Hive style partition path such as "event_type=click/year=2024/month=3/day=5"
func (x Partition) Path() string {
	values := x.Values()
	parts := make([]string, len(PartitionColumns))
	for i, col := range PartitionColumns {
		parts[i] = col + "=" + values[col]
	}
	return strings.Join(parts, "/")
}

// ParquetLocation indicates S3 path of a parquet file in the columnar store.
//
// Key Format:
// s3://{bucket}/{prefix}event_type={v}/year={y}/month={m}/day={d}/part-{fileID}.snappy.parquet
type ParquetLocation struct {
	Region    string
	Bucket    string
	Prefix    string
	Partition Partition
	FileID    string
}

func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// PartitionPrefix returns key prefix of the partition directory (with trailing slash).
func (x ParquetLocation) PartitionPrefix() string {
	return normalizePrefix(x.Prefix) + x.Partition.Path() + "/"
}

// S3Key returns full S3 key of the parquet object.
func (x ParquetLocation) S3Key() string {
	return x.PartitionPrefix() + "part-" + x.FileID + ".snappy.parquet"
}

// PartitionLocation returns S3 path of the partition directory. It is for catalog partition registration.
func (x ParquetLocation) PartitionLocation() string {
	return "s3://" + x.Bucket + "/" + x.PartitionPrefix()
}

// PartitionValues returns values ordered by keys. Unknown keys get empty string.
func (x ParquetLocation) PartitionValues(keys []string) []string {
	values := x.Partition.Values()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = values[k]
	}
	return out
}

// Object returns S3Object of the parquet file.
func (x ParquetLocation) Object() S3Object {
	return NewS3Object(x.Region, x.Bucket, x.S3Key())
}

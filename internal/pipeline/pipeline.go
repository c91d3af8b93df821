// Package pipeline has jobs that move records from raw storage or stream to the lake.
package pipeline

import (
	"github.com/m-mizutani/eventlake/internal"
	"github.com/m-mizutani/eventlake/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

var logger = internal.Logger

// Stage names for metrics and logs
const (
	StageRead       = "read"
	StageFlatten    = "flatten"
	StageEnrich     = "enrich"
	StagePartition  = "partition"
	StageSplit      = "split"
	StageAlign      = "align"
	StageQuarantine = "quarantine"
	StageParquet    = "parquet"
	StageRegister   = "register"
	StagePublish    = "publish"
	StageProcessed  = "processed"
)

func stageTimer(stage string) *prometheus.Timer {
	return prometheus.NewTimer(metrics.StageDuration.WithLabelValues(stage))
}

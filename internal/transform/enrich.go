package transform

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/eventlake/pkg/models"
)

// Fields added by Enricher
const (
	FieldProcessingID = "processing_id"
	FieldProcessedAt  = "processed_at"

	squaredSuffix = "_squared"
)

// DefaultNumericFields has fields whose square is added by Enricher.
var DefaultNumericFields = []string{"value"}

// Enricher adds processing metadata and computed fields to records. Now and NewID can be
// replaced for testing.
type Enricher struct {
	Now           func() time.Time
	NewID         func() string
	NumericFields []string
}

// NewEnricher is constructor of Enricher with wall clock and UUID v4.
func NewEnricher() *Enricher {
	return &Enricher{
		Now:           time.Now,
		NewID:         func() string { return uuid.New().String() },
		NumericFields: DefaultNumericFields,
	}
}

func (x *Enricher) stamp(record *models.Record, id string, ts time.Time) {
	record.Set(FieldProcessingID, id)
	record.Set(FieldProcessedAt, ts.UTC().Format(time.RFC3339Nano))
}

// Enrich returns a new record having processing_id, processed_at and "<field>_squared" for
// each numeric field in NumericFields. Non numeric or absent fields are passed through and
// a square overflowing float64 is not added. The input record is not modified.
func (x *Enricher) Enrich(record *models.Record) *models.Record {
	out := record.Copy()
	x.stamp(out, x.NewID(), x.Now())

	for _, field := range x.NumericFields {
		v, ok := record.Get(field)
		if !ok {
			continue
		}
		f, ok := models.ToFloat(v)
		if !ok {
			continue
		}
		if sq := f * f; !math.IsInf(sq, 0) {
			out.Set(field+squaredSuffix, models.ToNumber(sq))
		}
	}

	return out
}

// EnrichBatch adds one processing_id and processed_at to all rows of the batch.
func (x *Enricher) EnrichBatch(rows []*Row) {
	id, ts := x.NewID(), x.Now()
	for _, row := range rows {
		out := row.Current.Copy()
		x.stamp(out, id, ts)
		row.Current = out
	}
}

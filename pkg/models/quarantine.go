package models

// Reasons of quarantined entries
const (
	ReasonSchema = "schema"
	ReasonError  = "error"
)

// InvalidEntry is a quarantined record that lacks required fields.
type InvalidEntry struct {
	Record *Record `json:"record"`
	Reason string  `json:"reason"`
}

// NewInvalidEntry wraps a record that failed validation.
func NewInvalidEntry(record *Record) *InvalidEntry {
	return &InvalidEntry{Record: record, Reason: ReasonSchema}
}

// ErrorEntry is a quarantined payload that can not be decoded. Payload keeps raw data as text.
type ErrorEntry struct {
	Payload        string `json:"payload"`
	Reason         string `json:"reason"`
	Detail         string `json:"detail"`
	ShardID        string `json:"shard_id,omitempty"`
	SequenceNumber string `json:"sequence_number,omitempty"`
}

// NewErrorEntry wraps an undecodable payload.
func NewErrorEntry(payload []byte, err error) *ErrorEntry {
	entry := &ErrorEntry{
		Payload: string(payload),
		Reason:  ReasonError,
	}
	if err != nil {
		entry.Detail = err.Error()
	}
	return entry
}

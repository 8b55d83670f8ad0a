// Package auditlog records every computed sequence member to a durable sink.
// Records are batched by BatchInserter and handed to a DataBatchInserter,
// which is either a BigQuery table or gzipped JSONL objects in Cloud Storage.
package auditlog

import (
	"time"

	"github.com/illmade-knight/go-intseq/pkg/sequence"
)

// Entry is the stored form of a sequence.Record. Its field tags drive both
// BigQuery schema inference and the JSONL archive format.
type Entry struct {
	Sequence       string    `bigquery:"sequence" json:"sequence"`
	Index          int64     `bigquery:"index" json:"index"`
	Outcome        string    `bigquery:"outcome" json:"outcome"`
	Digits         int64     `bigquery:"digits" json:"digits"`
	DurationMicros int64     `bigquery:"duration_us" json:"duration_us"`
	Timestamp      time.Time `bigquery:"timestamp" json:"timestamp"`
}

// EntryFromRecord converts an observed record.
func EntryFromRecord(rec sequence.Record) *Entry {
	return &Entry{
		Sequence:       rec.Sequence.String(),
		Index:          int64(rec.Index),
		Outcome:        string(rec.Outcome),
		Digits:         int64(rec.Digits),
		DurationMicros: rec.Duration.Microseconds(),
		Timestamp:      rec.Timestamp.UTC(),
	}
}

// DayKey groups entries by the UTC day they were computed on.
func DayKey(e *Entry) string {
	return e.Timestamp.UTC().Format("2006/01/02")
}

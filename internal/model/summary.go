package model

import "time"

// IngestSummary captures metrics from a single price file ingest run.
type IngestSummary struct {
	FilePath           string
	FileSHA256         string
	PriceFileID        int64
	IngestBatchID      string
	HospitalKey        string
	AlreadyLoaded      bool
	RowsRead           int64
	RowsRejected       int64
	RowsSkipped        int64
	RowsLoaded         int64
	FilesSuperseded    int64
	RowsExplodedByCode map[string]int64
	DurationCopy       time.Duration
	DurationFinalize   time.Duration
	DurationTotal      time.Duration
}

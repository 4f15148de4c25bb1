package circstore

import (
	"encoding/json"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrInvalidSnapshotJSON is returned when snapshot JSON data is malformed or invalid.
	ErrInvalidSnapshotJSON = errors.New("snapshot json is not valid")

	// ErrEmptyReportType is returned when an empty report type is provided.
	ErrEmptyReportType = errors.New("report type must not be empty")

	// ErrEmptyFilterHash is returned when an empty filter hash is provided.
	ErrEmptyFilterHash = errors.New("filter hash must not be empty")

	// ErrSavingSnapshotFailed is returned when the snapshot save operation fails.
	ErrSavingSnapshotFailed = errors.New("saving snapshot failed")

	// ErrLoadingSnapshotFailed is returned when the snapshot load operation fails.
	ErrLoadingSnapshotFailed = errors.New("loading snapshot failed")

	// ErrDeletingSnapshotFailed is returned when the snapshot delete operation fails.
	ErrDeletingSnapshotFailed = errors.New("deleting snapshot failed")
)

// ReportSnapshot represents a cached report projection with the metadata
// needed to judge its freshness. SequenceNumber is the journal position the
// projection was computed at: a report is stale once the journal has moved
// past it. CreatedAt additionally bounds the age of time-sensitive reports
// whose content changes with the clock even when no transition commits.
type ReportSnapshot struct {
	ReportType     string              // Type of report (e.g., "OverdueReport")
	FilterHash     string              // Hash of the loan filter used to compute this report
	SequenceNumber JournalSequenceUint // Journal position at projection time
	Data           json.RawMessage     // Serialized report state as JSON
	CreatedAt      time.Time           // When this snapshot was created/updated
}

// Validate ensures the snapshot has valid data for storage operations.
func (s ReportSnapshot) Validate() error {
	if s.ReportType == "" {
		return ErrEmptyReportType
	}

	if s.FilterHash == "" {
		return ErrEmptyFilterHash
	}

	if !jsoniter.ConfigFastest.Valid(s.Data) {
		return ErrInvalidSnapshotJSON
	}

	return nil
}

// BuildReportSnapshot creates a new ReportSnapshot with validation.
func BuildReportSnapshot(
	reportType string,
	filterHash string,
	sequenceNumber JournalSequenceUint,
	data json.RawMessage,
) (ReportSnapshot, error) {
	snapshot := ReportSnapshot{
		ReportType:     reportType,
		FilterHash:     filterHash,
		SequenceNumber: sequenceNumber,
		Data:           data,
		CreatedAt:      time.Now(),
	}

	if err := snapshot.Validate(); err != nil {
		return ReportSnapshot{}, err
	}

	return snapshot, nil
}

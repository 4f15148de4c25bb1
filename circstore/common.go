package circstore

import (
	"errors"
)

var ErrEmptyTableNameSupplied = errors.New("empty table name supplied")
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrConcurrencyConflict = errors.New("concurrency error, no rows were affected")

var ErrBuildingQueryFailed = errors.New("building the query failed")
var ErrQueryingRecordsFailed = errors.New("querying records failed")
var ErrScanningDBRowFailed = errors.New("scanning the db row failed")
var ErrBuildingRecordFailed = errors.New("building the record from db values failed")
var ErrExecutingTransitionFailed = errors.New("executing the transition failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")

// JournalSequenceUint is a type alias for uint, representing a position in the append-only transition journal.
type JournalSequenceUint = uint

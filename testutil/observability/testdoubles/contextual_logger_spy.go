package testdoubles

import (
	"context"
	"sync"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

// ContextualLoggerSpy is a ContextualLogger implementation that captures
// contextual logging calls for testing.
type ContextualLoggerSpy struct {
	debugRecords []SpyContextualLogRecord
	infoRecords  []SpyContextualLogRecord
	warnRecords  []SpyContextualLogRecord
	errorRecords []SpyContextualLogRecord
	mu           sync.Mutex
}

// SpyContextualLogRecord represents a recorded contextual log call.
type SpyContextualLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// NewContextualLoggerSpy creates a new ContextualLoggerSpy instance.
func NewContextualLoggerSpy() *ContextualLoggerSpy {
	return &ContextualLoggerSpy{}
}

// DebugContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record("debug", ctx, msg, args)
}

// InfoContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record("info", ctx, msg, args)
}

// WarnContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record("warn", ctx, msg, args)
}

// ErrorContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record("error", ctx, msg, args)
}

func (s *ContextualLoggerSpy) record(level string, ctx context.Context, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := SpyContextualLogRecord{
		Level:   level,
		Message: msg,
		Args:    args,
		Context: ctx,
	}

	switch level {
	case "debug":
		s.debugRecords = append(s.debugRecords, entry)
	case "info":
		s.infoRecords = append(s.infoRecords, entry)
	case "warn":
		s.warnRecords = append(s.warnRecords, entry)
	case "error":
		s.errorRecords = append(s.errorRecords, entry)
	}
}

// Reset clears all recorded log calls.
func (s *ContextualLoggerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugRecords = s.debugRecords[:0]
	s.infoRecords = s.infoRecords[:0]
	s.warnRecords = s.warnRecords[:0]
	s.errorRecords = s.errorRecords[:0]
}

// GetInfoRecords returns a copy of all info log records.
func (s *ContextualLoggerSpy) GetInfoRecords() []SpyContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyContextualLogRecord(nil), s.infoRecords...)
}

// GetWarnRecords returns a copy of all warn log records.
func (s *ContextualLoggerSpy) GetWarnRecords() []SpyContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyContextualLogRecord(nil), s.warnRecords...)
}

// GetErrorRecords returns a copy of all error log records.
func (s *ContextualLoggerSpy) GetErrorRecords() []SpyContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyContextualLogRecord(nil), s.errorRecords...)
}

// HasInfoLog checks if an info log with the specified message exists.
func (s *ContextualLoggerSpy) HasInfoLog(message string) bool {
	return s.hasLog(&s.infoRecords, message)
}

// HasWarnLog checks if a warn log with the specified message exists.
func (s *ContextualLoggerSpy) HasWarnLog(message string) bool {
	return s.hasLog(&s.warnRecords, message)
}

// HasErrorLog checks if an error log with the specified message exists.
func (s *ContextualLoggerSpy) HasErrorLog(message string) bool {
	return s.hasLog(&s.errorRecords, message)
}

func (s *ContextualLoggerSpy) hasLog(records *[]SpyContextualLogRecord, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range *records {
		if record.Message == message {
			return true
		}
	}

	return false
}

// Compile-time check that the spy implements the ContextualLogger port.
var _ circstore.ContextualLogger = (*ContextualLoggerSpy)(nil)

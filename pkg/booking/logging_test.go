package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recorderLogger struct {
	mu      sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) snapshot() []OperationLog {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return append([]OperationLog(nil), logger.entries...)
}

func TestServiceLogsAvailabilityOutcome(test *testing.T) {
	test.Parallel()
	logger := &recorderLogger{}
	service := newService(test, newBayFixture(test), WithOperationLogger(logger))
	request := bayRequest(test, "10:00", 60)
	if _, err := service.CheckAvailability(context.Background(), request); err != nil {
		test.Fatalf("check failed: %v", err)
	}
	entries := logger.snapshot()
	if len(entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Operation != operationCheckAvailability || entry.Resource != request.Resource || entry.Branch != request.Branch {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK || entry.Outcome != string(StatusAvailable) {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newBayFixture(test)
	store.failReads = errors.New("boom")
	logger := &recorderLogger{}
	service := newService(test, store, WithOperationLogger(logger))
	_, err := service.FindOpenStarts(context.Background(), SearchRequest{
		Branch: mustBranchID(test, testBranch),
		Kind:   ResourceKindBay,
		Date:   mustDate(test, testDate),
		Plan:   SingleSession(60),
	})
	if err == nil {
		test.Fatalf("expected error")
	}
	entries := logger.snapshot()
	if len(entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Status != operationStatusError || entries[0].Error == nil || entries[0].Operation != operationFindOpenStarts {
		test.Fatalf("expected error log entry, got %+v", entries[0])
	}
}

func TestServiceLogsCommitReservationID(test *testing.T) {
	test.Parallel()
	logger := &recorderLogger{}
	service := newService(test, newBayFixture(test), WithOperationLogger(logger))
	result, err := service.CommitReservation(context.Background(), bayCommit(test, "12:00", 30, PaymentCard, ""))
	if err != nil {
		test.Fatalf("commit failed: %v", err)
	}
	entries := logger.snapshot()
	if len(entries) != 1 || entries[0].ReservationID != result.ReservationID || entries[0].Outcome != string(CommitStateCommitted) {
		test.Fatalf("unexpected commit log %+v", entries)
	}
}

func TestNewServiceRejectsMissingDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewService(nil, fixedClock); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid config for nil store, got %v", err)
	}
	if _, err := NewService(newStubStore(test), nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid config for nil clock, got %v", err)
	}
}

package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubStore struct {
	mu             sync.Mutex
	hours          map[string]ScheduleWindow
	working        map[string]WorkingHours
	profiles       []ResourceProfile
	booked         map[string][]BookedInterval
	memberTypes    map[string]string
	ledger         map[string][]LedgerEntry
	policies       map[string][]PricingPolicy
	reservations   []ReservationRecord
	deductions     []LedgerDeduction
	takenIDs       map[string]bool
	deductErr      error
	insertErr      error
	failReads      error
	beforeInsert   func(store *stubStore)
	calls          int
	policyRequests []string
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		hours:       map[string]ScheduleWindow{},
		working:     map[string]WorkingHours{},
		booked:      map[string][]BookedInterval{},
		memberTypes: map[string]string{},
		ledger:      map[string][]LedgerEntry{},
		policies:    map[string][]PricingPolicy{},
		takenIDs:    map[string]bool{},
	}
}

func (store *stubStore) read() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls++
	return store.failReads
}

func (store *stubStore) BusinessHours(_ context.Context, _ BranchID, date Date) (ScheduleWindow, error) {
	if err := store.read(); err != nil {
		return ScheduleWindow{}, err
	}
	hours, ok := store.hours[date.String()]
	if !ok {
		return ScheduleWindow{}, ErrScheduleNotFound
	}
	return hours, nil
}

func (store *stubStore) WorkingHours(_ context.Context, _ BranchID, instructor ResourceID, date Date) (WorkingHours, bool, error) {
	if err := store.read(); err != nil {
		return WorkingHours{}, false, err
	}
	hours, ok := store.working[instructor.String()+"|"+date.String()]
	return hours, ok, nil
}

func (store *stubStore) ResourceProfile(_ context.Context, _ BranchID, kind ResourceKind, resource ResourceID) (ResourceProfile, error) {
	if err := store.read(); err != nil {
		return ResourceProfile{}, err
	}
	for _, profile := range store.profiles {
		if profile.ID == resource && profile.Kind == kind {
			return profile, nil
		}
	}
	return ResourceProfile{}, ErrResourceNotFound
}

func (store *stubStore) ResourceProfiles(_ context.Context, _ BranchID, kind ResourceKind) ([]ResourceProfile, error) {
	if err := store.read(); err != nil {
		return nil, err
	}
	var profiles []ResourceProfile
	for _, profile := range store.profiles {
		if profile.Kind == kind {
			profiles = append(profiles, profile)
		}
	}
	return profiles, nil
}

func (store *stubStore) BookedIntervals(_ context.Context, _ BranchID, kind ResourceKind, resource ResourceID, date Date) ([]BookedInterval, error) {
	if err := store.read(); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	var intervals []BookedInterval
	for _, interval := range store.booked[date.String()] {
		if !resource.IsZero() && interval.ResourceID != resource {
			continue
		}
		intervals = append(intervals, interval)
	}
	return intervals, nil
}

func (store *stubStore) MemberType(_ context.Context, _ BranchID, member MemberID) (string, error) {
	if err := store.read(); err != nil {
		return "", err
	}
	memberType, ok := store.memberTypes[member.String()]
	if !ok {
		return "", ErrMemberNotFound
	}
	return memberType, nil
}

func (store *stubStore) LedgerEntries(_ context.Context, _ BranchID, member MemberID) ([]LedgerEntry, error) {
	if err := store.read(); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	return append([]LedgerEntry(nil), store.ledger[member.String()]...), nil
}

func (store *stubStore) LedgerEntry(_ context.Context, _ BranchID, member MemberID, contract ContractID, scope LedgerScope) (LedgerEntry, error) {
	if err := store.read(); err != nil {
		return LedgerEntry{}, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, entry := range store.ledger[member.String()] {
		if entry.ContractID == contract && entry.Matches(scope) {
			return entry, nil
		}
	}
	return LedgerEntry{}, ErrContractNotFound
}

func (store *stubStore) PricingPolicies(_ context.Context, _ BranchID, dayKey string) ([]PricingPolicy, error) {
	if err := store.read(); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.policyRequests = append(store.policyRequests, dayKey)
	return store.policies[dayKey], nil
}

func (store *stubStore) InsertReservation(_ context.Context, record ReservationRecord) error {
	if store.beforeInsert != nil {
		store.beforeInsert(store)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls++
	if store.insertErr != nil {
		return store.insertErr
	}
	if store.takenIDs[record.ReservationID.String()] {
		return ErrReservationIDConflict
	}
	for _, existing := range store.booked[record.Date.String()] {
		if existing.ResourceID == record.ResourceID && existing.Start == record.Start {
			return ErrDuplicateReservation
		}
	}
	store.takenIDs[record.ReservationID.String()] = true
	store.reservations = append(store.reservations, record)
	store.booked[record.Date.String()] = append(store.booked[record.Date.String()], BookedInterval{
		ResourceID:    record.ResourceID,
		ReservationID: record.ReservationID.String(),
		Start:         record.Start,
		End:           record.End,
	})
	return nil
}

func (store *stubStore) InsertLedgerDeduction(_ context.Context, deduction LedgerDeduction) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls++
	if store.deductErr != nil {
		return store.deductErr
	}
	entries := store.ledger[deduction.Member.String()]
	for index := range entries {
		if entries[index].ContractID == deduction.Contract {
			entries[index].Balance = deduction.BalanceAfter
		}
	}
	store.deductions = append(store.deductions, deduction)
	return nil
}

func (store *stubStore) addBooking(test *testing.T, date string, resource string, start string, end string) {
	test.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	store.booked[date] = append(store.booked[date], BookedInterval{
		ResourceID:    mustResourceID(test, resource),
		ReservationID: date + "_" + resource + "_" + start,
		Start:         mustMinutes(test, start),
		End:           mustMinutes(test, end),
	})
}

func (store *stubStore) callCount() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.calls
}

// The fixed clock is Monday 2025-03-10 08:00; testDate is the following Tuesday.
const (
	testDate   = "2025-03-11"
	testBranch = "branch-1"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
}

func newBayFixture(test *testing.T) *stubStore {
	test.Helper()
	store := newStubStore(test)
	store.hours[testDate] = ScheduleWindow{BusinessStart: mustMinutes(test, "09:00"), BusinessEnd: mustMinutes(test, "22:00")}
	store.profiles = append(store.profiles, ResourceProfile{
		ID:                 mustResourceID(test, "1"),
		Kind:               ResourceKindBay,
		Status:             ResourceStatusAvailable,
		MinDurationMinutes: 30,
		MaxDurationMinutes: 180,
		GranularityMinutes: 5,
		BufferMinutes:      15,
		HourlyRates: map[RateBand]int64{
			RateBandBase:      30000,
			RateBandDiscount:  24000,
			RateBandSurcharge: 36000,
		},
	})
	store.policies["tue"] = []PricingPolicy{{DayKey: "tue", Start: 0, End: 0, Band: RateBandBase}}
	store.memberTypes["member-1"] = "regular"
	return store
}

func newService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, fixedClock, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustMinutes(test *testing.T, raw string) int {
	test.Helper()
	minutes, err := ToMinutes(raw)
	if err != nil {
		test.Fatalf("minutes %q: %v", raw, err)
	}
	return minutes
}

func mustResourceID(test *testing.T, raw string) ResourceID {
	test.Helper()
	resourceID, err := NewResourceID(raw)
	if err != nil {
		test.Fatalf("resource id %q: %v", raw, err)
	}
	return resourceID
}

func mustBranchID(test *testing.T, raw string) BranchID {
	test.Helper()
	branchID, err := NewBranchID(raw)
	if err != nil {
		test.Fatalf("branch id %q: %v", raw, err)
	}
	return branchID
}

func mustMemberID(test *testing.T, raw string) MemberID {
	test.Helper()
	memberID, err := NewMemberID(raw)
	if err != nil {
		test.Fatalf("member id %q: %v", raw, err)
	}
	return memberID
}

func mustContractID(test *testing.T, raw string) ContractID {
	test.Helper()
	contractID, err := NewContractID(raw)
	if err != nil {
		test.Fatalf("contract id %q: %v", raw, err)
	}
	return contractID
}

func mustReservationID(test *testing.T, raw string) ReservationID {
	test.Helper()
	reservationID, err := NewReservationID(raw)
	if err != nil {
		test.Fatalf("reservation id %q: %v", raw, err)
	}
	return reservationID
}

func mustDate(test *testing.T, raw string) Date {
	test.Helper()
	date, err := NewDate(raw)
	if err != nil {
		test.Fatalf("date %q: %v", raw, err)
	}
	return date
}

func mustDatePointer(test *testing.T, raw string) *Date {
	test.Helper()
	date := mustDate(test, raw)
	return &date
}

func bayRequest(test *testing.T, start string, duration int) AvailabilityRequest {
	test.Helper()
	return AvailabilityRequest{
		Branch:   mustBranchID(test, testBranch),
		Kind:     ResourceKindBay,
		Resource: mustResourceID(test, "1"),
		Date:     mustDate(test, testDate),
		Start:    mustMinutes(test, start),
		Duration: duration,
	}
}

func hasReason(issues []Issue, reason Reason) bool {
	for _, issue := range issues {
		if issue.Reason == reason {
			return true
		}
	}
	return false
}

var errStubFailure = errors.New("stub failure")

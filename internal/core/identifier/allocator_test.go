package identifier

import (
	"context"
	"errors"
	"testing"

	"github.com/ogurasousui/org-directory/internal/core/apperr"
	"github.com/ogurasousui/org-directory/internal/core/employee"
)

type fakeCounters struct {
	values map[string]int
	saves  int
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{values: make(map[string]int)}
}

func (f *fakeCounters) LockCounter(_ context.Context, clientID string) (int, error) {
	return f.values[clientID], nil
}

func (f *fakeCounters) SaveCounter(_ context.Context, clientID string, value int) error {
	f.values[clientID] = value
	f.saves++
	return nil
}

type fakeEmployees struct {
	taken map[string]bool
}

func (f *fakeEmployees) FindByEmployeeID(_ context.Context, clientID, employeeID string) (*employee.Employee, error) {
	if f.taken[clientID+"/"+employeeID] {
		return &employee.Employee{ClientID: clientID, EmployeeID: employeeID}, nil
	}
	return nil, employee.ErrEmployeeNotFound
}

func strPtr(s string) *string { return &s }

func TestAllocator_Ensure_Generated(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	alloc := NewAllocator(counters, &fakeEmployees{}, nil)

	first, err := alloc.Ensure(context.Background(), "client-1", "1010", nil)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if first.ID != "1010-0001" || !first.Generated {
		t.Fatalf("unexpected allocation %+v", first)
	}

	second, err := alloc.Ensure(context.Background(), "client-1", "1010", strPtr("   "))
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if second.ID != "1010-0002" {
		t.Fatalf("expected blank candidate to be generated, got %+v", second)
	}
	if counters.values["client-1"] != 2 {
		t.Fatalf("expected counter 2, got %d", counters.values["client-1"])
	}
}

func TestAllocator_Ensure_SkipsDrift(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	employees := &fakeEmployees{taken: map[string]bool{
		"client-1/1010-0001": true,
		"client-1/1010-0002": true,
	}}
	alloc := NewAllocator(counters, employees, nil)

	got, err := alloc.Ensure(context.Background(), "client-1", "1010", nil)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if got.ID != "1010-0003" {
		t.Fatalf("expected 1010-0003, got %s", got.ID)
	}
	if counters.values["client-1"] != 3 || counters.saves != 3 {
		t.Fatalf("expected skipped values to advance counter, got value=%d saves=%d", counters.values["client-1"], counters.saves)
	}
}

func TestAllocator_Ensure_ExhaustedAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	taken := make(map[string]bool)
	for i := 1; i <= MaxAttempts; i++ {
		taken["client-1/"+Format("1010", i)] = true
	}
	counters := newFakeCounters()
	alloc := NewAllocator(counters, &fakeEmployees{taken: taken}, nil)

	_, err := alloc.Ensure(context.Background(), "client-1", "1010", nil)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if apperr.KindOf(err).Status() != 500 {
		t.Fatalf("expected 500, got %d", apperr.KindOf(err).Status())
	}
	if counters.values["client-1"] != MaxAttempts {
		t.Fatalf("expected counter advanced to %d, got %d", MaxAttempts, counters.values["client-1"])
	}
}

func TestAllocator_Ensure_CapacityExhausted(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	counters.values["client-1"] = Capacity - 1
	alloc := NewAllocator(counters, &fakeEmployees{}, nil)

	last, err := alloc.Ensure(context.Background(), "client-1", "1010", nil)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if last.ID != "1010-9999" {
		t.Fatalf("expected 1010-9999, got %s", last.ID)
	}

	_, err = alloc.Ensure(context.Background(), "client-1", "1010", nil)
	if !errors.Is(err, ErrCapacityExhausted) {
		t.Fatalf("expected ErrCapacityExhausted, got %v", err)
	}
	if apperr.KindOf(err).Status() != 400 {
		t.Fatalf("expected 400, got %d", apperr.KindOf(err).Status())
	}
	if counters.values["client-1"] != Capacity {
		t.Fatalf("counter must not wrap, got %d", counters.values["client-1"])
	}
}

func TestAllocator_Ensure_Explicit(t *testing.T) {
	t.Parallel()

	counters := newFakeCounters()
	employees := &fakeEmployees{taken: map[string]bool{"client-1/1010-0007": true}}
	alloc := NewAllocator(counters, employees, nil)

	got, err := alloc.Ensure(context.Background(), "client-1", "1010", strPtr(" 1010-0001 "))
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if got.ID != "1010-0001" || got.Generated {
		t.Fatalf("unexpected allocation %+v", got)
	}
	if counters.saves != 0 {
		t.Fatalf("explicit ids must not touch the counter")
	}

	if _, err := alloc.Ensure(context.Background(), "client-1", "1010", strPtr("1010-0007")); !errors.Is(err, employee.ErrEmployeeIDAlreadyExists) {
		t.Fatalf("expected conflict, got %v", err)
	}

	for _, bad := range []string{"1010-01", "2020-0001", "1010-00a1", "10100001"} {
		if _, err := alloc.Ensure(context.Background(), "client-1", "1010", strPtr(bad)); !errors.Is(err, employee.ErrInvalidEmployeeID) {
			t.Fatalf("%s: expected ErrInvalidEmployeeID, got %v", bad, err)
		}
	}
}

func TestAllocator_Ensure_LowercaseCompanyPrefix(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator(newFakeCounters(), &fakeEmployees{}, nil)

	got, err := alloc.Ensure(context.Background(), "client-1", "comp-001", strPtr("comp-001-0042"))
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if got.ID != "COMP-001-0042" {
		t.Fatalf("expected normalized id, got %s", got.ID)
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	if !IsRetryable(Allocation{ID: "1010-0001", Generated: true}, employee.ErrEmployeeIDAlreadyExists) {
		t.Fatalf("generated id conflict must be retryable")
	}
	if IsRetryable(Allocation{ID: "1010-0001"}, employee.ErrEmployeeIDAlreadyExists) {
		t.Fatalf("explicit id conflict must not be retryable")
	}
	if IsRetryable(Allocation{Generated: true}, errors.New("db down")) {
		t.Fatalf("other failures must not be retryable")
	}
}

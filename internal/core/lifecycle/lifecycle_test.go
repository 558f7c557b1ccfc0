package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ogurasousui/org-directory/internal/adapters/repository/memory"
	"github.com/ogurasousui/org-directory/internal/core/client"
	"github.com/ogurasousui/org-directory/internal/core/employee"
	"github.com/ogurasousui/org-directory/internal/core/identifier"
	"github.com/ogurasousui/org-directory/internal/core/location"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func str(s string) *string { return &s }

func newValidators(store *memory.Store) *Validators {
	return &Validators{
		Clients:     store.Clients(),
		Employees:   store.Employees(),
		CostCenters: store.CostCenters(),
		Locations:   store.Locations(),
		Assignments: store.Assignments(),
		Identifiers: identifier.NewAllocator(store.Counters(), store.Employees(), nil),
	}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		startA     *time.Time
		endA       *time.Time
		startB     *time.Time
		endB       *time.Time
		overlapped bool
	}{
		{name: "disjoint", startA: date(2024, 1, 1), endA: date(2024, 1, 31), startB: date(2024, 2, 1), endB: date(2024, 2, 28)},
		{name: "touching end day", startA: date(2024, 1, 1), endA: date(2024, 1, 31), startB: date(2024, 1, 31), overlapped: true},
		{name: "both open", startA: date(2024, 1, 1), startB: date(2030, 1, 1), overlapped: true},
		{name: "open before closed", startA: date(2024, 3, 1), startB: date(2024, 1, 1), endB: date(2024, 2, 1)},
		{name: "nested", startA: date(2024, 1, 1), endA: date(2024, 12, 31), startB: date(2024, 6, 1), endB: date(2024, 6, 2), overlapped: true},
	}
	for _, tc := range cases {
		if got := Overlaps(*tc.startA, tc.endA, *tc.startB, tc.endB); got != tc.overlapped {
			t.Errorf("%s: want %v got %v", tc.name, tc.overlapped, got)
		}
		if got := Overlaps(*tc.startB, tc.endB, *tc.startA, tc.endA); got != tc.overlapped {
			t.Errorf("%s (swapped): want %v got %v", tc.name, tc.overlapped, got)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)
	if got := NormalizeDate(in); !got.Equal(*date(2024, 5, 10)) {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestValidators_Client(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	v := newValidators(store)
	ctx := context.Background()

	rec, err := v.Client(ctx, ClientChange{Event: EventCreate, Incoming: ClientPatch{
		CompanyID:   str(" 1010 "),
		Name:        str(" Acme "),
		CountryCode: str("de"),
	}})
	if err != nil {
		t.Fatalf("Client returned error: %v", err)
	}
	if rec.CompanyID != "1010" || rec.Name != "Acme" || rec.CountryCode == nil || *rec.CountryCode != "DE" {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, err := v.Client(ctx, ClientChange{Event: EventCreate, Incoming: ClientPatch{CompanyID: str("ACME"), Name: str("Acme")}}); !errors.Is(err, client.ErrInvalidCompanyID) {
		t.Fatalf("expected ErrInvalidCompanyID, got %v", err)
	}

	saved, err := store.Clients().Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := v.Client(ctx, ClientChange{Event: EventCreate, Incoming: ClientPatch{CompanyID: str("1010"), Name: str("Dup")}}); !errors.Is(err, client.ErrCompanyIDAlreadyExists) {
		t.Fatalf("expected ErrCompanyIDAlreadyExists, got %v", err)
	}

	cleared, err := v.Client(ctx, ClientChange{Event: EventUpdate, Existing: saved, Incoming: ClientPatch{CountryCodeSet: true}})
	if err != nil {
		t.Fatalf("Client update returned error: %v", err)
	}
	if cleared.CountryCode != nil {
		t.Fatalf("expected country code to be cleared")
	}
	if saved.CountryCode == nil {
		t.Fatalf("existing record must not be mutated")
	}
}

func TestValidators_Location(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	v := newValidators(store)
	ctx := context.Background()

	patch := LocationPatch{
		City:        str("Berlin"),
		CountryCode: str("de"),
		ZipCode:     str("10115"),
		Street:      str("Invalidenstr. 1"),
		ClientID:    str("client-1"),
		ValidFrom:   date(2024, 1, 1),
	}
	rec, err := v.Location(ctx, LocationChange{Event: EventCreate, Incoming: patch})
	if err != nil {
		t.Fatalf("Location returned error: %v", err)
	}
	if rec.CountryCode != "DE" {
		t.Fatalf("unexpected country %q", rec.CountryCode)
	}

	bad := patch
	bad.CountryCode = str("Germany")
	if _, err := v.Location(ctx, LocationChange{Event: EventCreate, Incoming: bad}); !errors.Is(err, location.ErrInvalidCountryCode) {
		t.Fatalf("expected ErrInvalidCountryCode, got %v", err)
	}

	saved, err := store.Locations().Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := store.Employees().Create(ctx, &employee.Employee{
		EmployeeID: "1010-0001",
		ClientID:   "client-1",
		LocationID: saved.ID,
		EntryDate:  *date(2024, 1, 1),
	}); err != nil {
		t.Fatalf("Create employee returned error: %v", err)
	}

	_, err = v.Location(ctx, LocationChange{Event: EventUpdate, Existing: saved, Incoming: LocationPatch{ClientID: str("client-2")}})
	if !errors.Is(err, location.ErrClientChangeInUse) {
		t.Fatalf("expected ErrClientChangeInUse, got %v", err)
	}

	_, err = v.Location(ctx, LocationChange{Event: EventUpdate, Existing: saved, Incoming: LocationPatch{ValidTo: date(2023, 1, 1)}})
	if !errors.Is(err, location.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestResolveStatus(t *testing.T) {
	t.Parallel()

	active := employee.Status(" Active ")
	if got, err := resolveStatus(&active, nil); err != nil || got != employee.StatusActive {
		t.Fatalf("unexpected result %q %v", got, err)
	}
	if _, err := resolveStatus(&active, date(2024, 1, 1)); !errors.Is(err, employee.ErrStatusExitDateMismatch) {
		t.Fatalf("expected ErrStatusExitDateMismatch, got %v", err)
	}
	unknown := employee.Status("retired")
	if _, err := resolveStatus(&unknown, nil); !errors.Is(err, employee.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if got, _ := resolveStatus(nil, date(2024, 1, 1)); got != employee.StatusInactive {
		t.Fatalf("expected derived inactive status, got %q", got)
	}
}

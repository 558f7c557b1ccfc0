package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	t.Parallel()

	sentinel := Conflict("CODE_TAKEN", "code already exists")
	wrapped := fmt.Errorf("code: %w", sentinel)

	if KindOf(wrapped) != KindConflict {
		t.Fatalf("expected conflict kind, got %s", KindOf(wrapped))
	}
	if CodeOf(wrapped) != "CODE_TAKEN" {
		t.Fatalf("unexpected code %s", CodeOf(wrapped))
	}
	if !errors.Is(wrapped, sentinel) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	t.Parallel()

	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("expected plain errors to be internal")
	}
	if Is(nil, KindInternal) {
		t.Fatalf("nil error must not match any kind")
	}
}

func TestKindStatus(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		KindValidation:          400,
		KindUnauthenticated:     401,
		KindUnauthorizedCompany: 403,
		KindForbidden:           403,
		KindNotFound:            404,
		KindConflict:            409,
		KindPreconditionFailed:  412,
		KindInternal:            500,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Errorf("%s: want %d got %d", kind, want, got)
		}
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := Wrap(KindInternal, "STORE", "store failure", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if err.Error() != "store failure: db down" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

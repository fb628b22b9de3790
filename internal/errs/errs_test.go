package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindNotFound, "missing")
	if KindOf(err) != KindNotFound {
		t.Errorf("expected KindNotFound, got %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain error should have KindUnknown")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil should have KindUnknown")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindAccessDenied, "traversal")
	outer := fmt.Errorf("list failed: %w", inner)
	if !IsAccessDenied(outer) {
		t.Error("kind should survive fmt.Errorf wrapping")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := fs.ErrPermission
	err := Wrap(KindIO, "open root", cause)
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestErrorString(t *testing.T) {
	err := New(KindPayloadTooLarge, "file too big")
	want := "[payload_too_large] file too big"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	withCause := Wrap(KindIO, "rename", errors.New("disk full"))
	want = "[io_failure] rename: disk full"
	if withCause.Error() != want {
		t.Errorf("got %q, want %q", withCause.Error(), want)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		kind Kind
		pred func(error) bool
	}{
		{KindInvalidArgument, IsInvalidArgument},
		{KindAccessDenied, IsAccessDenied},
		{KindNotFound, IsNotFound},
		{KindPayloadTooLarge, IsPayloadTooLarge},
		{KindInvalidOperation, IsInvalidOperation},
		{KindIO, IsIO},
	}
	for _, c := range cases {
		if !c.pred(New(c.kind, "x")) {
			t.Errorf("predicate for %v failed on its own kind", c.kind)
		}
		if c.pred(New(KindUnknown, "x")) {
			t.Errorf("predicate for %v matched KindUnknown", c.kind)
		}
	}
}

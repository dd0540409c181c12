package optimization

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError("bad batch").WithComponent("Selector").WithOperation("Selector.Optimize")
	want := "Selector: Selector.Optimize: bad batch"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}

	wrapped := WrapError(err, "selection failed")
	if got := wrapped.Error(); got != "selection failed: "+want {
		t.Fatalf("got %q", got)
	}
}

func TestErrorKinds(t *testing.T) {
	usage := NewUsageError("batch size %d is invalid", 0)
	if !errors.Is(usage, ErrUsage) {
		t.Fatal("usage error does not match ErrUsage")
	}
	if errors.Is(usage, ErrSingular) {
		t.Fatal("usage error must not match ErrSingular")
	}

	singular := NewSingularError("covariance matrix is not positive definite")
	if !errors.Is(singular, ErrSingular) {
		t.Fatal("singular error does not match ErrSingular")
	}
}

func TestWrapErrorPreservesKind(t *testing.T) {
	inner := NewSingularError("duplicate rows")
	outer := WrapErrorf(inner, "refit %d failed", 3)

	if !errors.Is(outer, ErrSingular) {
		t.Fatal("wrapping lost the sentinel kind")
	}
	var e *Error
	if !errors.As(outer, &e) {
		t.Fatal("wrapped error is not an *Error")
	}
	if !errors.Is(errors.Unwrap(outer), ErrSingular) {
		t.Fatal("unwrapping lost the inner error")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

package lookupcore

import (
	"errors"
	"fmt"
	"testing"
)

func ExampleError() {
	fmt.Println(&Error{
		Kind:    ErrType,
		Message: "unknown backend",
		Op:      "ParseFullType",
	})

	fmt.Println(&Error{
		Inner:   errors.New("connection refused"),
		Kind:    ErrBackendOpen,
		Message: "pgsql: open failed",
		Op:      "Open",
	})

	fmt.Println(fmt.Errorf("lookupctl: %w", &Error{
		Inner: errors.New("connection refused"),
		Kind:  ErrBackendOpen,
		Op:    "Open",
	}))

	// Output:
	// ParseFullType: [type] unknown backend
	// Open: [backend-open] pgsql: open failed: connection refused
	// lookupctl: Open: [backend-open] connection refused
}

func TestErrorRetryable(t *testing.T) {
	tt := []struct {
		name      string
		err       error
		retryable bool
		temporary bool
	}{
		{"defer", &Error{Kind: ErrDefer}, true, true},
		{"eviction", &Error{Kind: ErrEviction}, true, true},
		{"type", &Error{Kind: ErrType}, false, false},
		{"backend-find", &Error{Kind: ErrBackendFind}, false, false},
		{"wrapped defer", fmt.Errorf("probe: %w", &Error{Kind: ErrDefer}), true, true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := errors.Is(tc.err, ErrRetryable); got != tc.retryable {
				t.Errorf("errors.Is(err, ErrRetryable) = %v, want %v", got, tc.retryable)
			}
			var e *Error
			if errors.As(tc.err, &e) {
				if got := e.Temporary(); got != tc.temporary {
					t.Errorf("Temporary() = %v, want %v", got, tc.temporary)
				}
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: ErrBackendFind, Inner: inner}
	if got := errors.Unwrap(err); got != inner {
		t.Errorf("Unwrap() = %v, want %v", got, inner)
	}
}

package core

import (
	"errors"
	"testing"
	"time"
)

func TestActivityValidate(t *testing.T) {
	good := Activity{ID: "a1", UserID: "u1", Name: "Gym Workout", Color: "#ef4444"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Color is optional; the default is applied at creation time.
	noColor := Activity{ID: "a2", UserID: "u1", Name: "Read Book"}
	if err := noColor.Validate(); err != nil {
		t.Fatalf("expected ok without color, got %v", err)
	}

	cases := []struct {
		name string
		a    Activity
		want error
	}{
		{"empty name", Activity{UserID: "u1", Name: ""}, ErrEmptyName},
		{"whitespace name", Activity{UserID: "u1", Name: "   "}, ErrEmptyName},
		{"bad color", Activity{UserID: "u1", Name: "x", Color: "red"}, ErrInvalidColor},
		{"short hex", Activity{UserID: "u1", Name: "x", Color: "#fff"}, ErrInvalidColor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.a.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%v should match ErrValidation", err)
			}
		})
	}
}

func TestLogValidate(t *testing.T) {
	now := time.Now()
	if err := (Log{ActivityID: "a1", Count: 1, OccurredAt: now}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// Aggregation must accept arbitrary positive counts, so validation does too.
	if err := (Log{ActivityID: "a1", Count: 5, OccurredAt: now}).Validate(); err != nil {
		t.Fatalf("expected ok for count=5, got %v", err)
	}
	if err := (Log{ActivityID: "a1", Count: 0, OccurredAt: now}).Validate(); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("got %v, want ErrInvalidCount", err)
	}
	if err := (Log{ActivityID: "a1", Count: -1, OccurredAt: now}).Validate(); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("got %v, want ErrInvalidCount", err)
	}
	if err := (Log{ActivityID: "a1", Count: 1}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want validation error for zero timestamp", err)
	}
}

func TestValidationErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrEmptyName, ErrNotFound) || errors.Is(ErrEmptyName, ErrUnauthorized) {
		t.Fatal("validation errors must not match the other sentinels")
	}
}

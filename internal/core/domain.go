package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// DefaultColor is applied when an activity is created without a color tag.
const DefaultColor = "#000000"

type (
	// User is the identity anchor. It owns zero or more activities and is
	// immutable after registration except for credential rotation, which an
	// external provider handles.
	User struct {
		ID           string
		Email        string
		Name         string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Activity is a named, color-tagged category of trackable occurrences
	// owned by exactly one user. Names need not be unique.
	Activity struct {
		ID        string
		UserID    string
		Name      string
		Color     string
		CreatedAt time.Time
	}

	// Log is a single occurrence record. Its effective owner is the owner
	// of its parent activity; ownership is never stored on the log itself.
	// OccurredAt is the semantic event time, not the row-creation time.
	Log struct {
		ID         string
		ActivityID string
		Count      int
		OccurredAt time.Time
		CreatedAt  time.Time
	}
)

var (
	// ErrUnauthorized covers both a missing session and a session whose
	// user does not own the target entity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the referenced entity id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is the common sentinel all field validation errors
	// match via errors.Is.
	ErrValidation = errors.New("validation failed")

	ErrEmptyName    = validationError("activity name cannot be empty")
	ErrInvalidColor = validationError("color must be a #rrggbb hex string")
	ErrInvalidCount = validationError("log count must be positive")
)

type fieldError struct {
	msg string
}

func validationError(msg string) error { return fieldError{msg: msg} }

func (e fieldError) Error() string { return e.msg }

func (e fieldError) Is(target error) bool { return target == ErrValidation }

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (a Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return validationError("activity name too long (max 100 characters)")
	}
	if a.Color != "" && !colorPattern.MatchString(a.Color) {
		return ErrInvalidColor
	}
	return nil
}

func (l Log) Validate() error {
	if l.Count <= 0 {
		return ErrInvalidCount
	}
	if l.OccurredAt.IsZero() {
		return validationError("occurrence timestamp cannot be zero")
	}
	return nil
}

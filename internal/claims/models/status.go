package models

import (
	"strings"

	dErrors "claimdesk/pkg/domain-errors"
)

// Status is the lifecycle position of a claim. Values are the persisted and
// wire representation.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusInReview Status = "In Review"
	StatusFinished Status = "Finished"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusFinished:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusFinished
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus validates raw (surrounding whitespace ignored).
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "status must be Pending, In Review, or Finished")
	}
	return s, nil
}

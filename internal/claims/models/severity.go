package models

import (
	"errors"
	"fmt"

	dErrors "claimdesk/pkg/domain-errors"
)

// Severity classifies the impact of a damage.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityMid  Severity = "mid"
	SeverityHigh Severity = "high"
)

// ErrInvalidSeverity is the cause carried by every severity parse failure.
var ErrInvalidSeverity = errors.New("invalid severity")

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMid, SeverityHigh:
		return true
	default:
		return false
	}
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity validates raw and returns the matching Severity.
// Matching is exact; callers normalize case before parsing.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(raw)
	if !s.IsValid() {
		return "", dErrors.Wrap(
			fmt.Errorf("%w: %q", ErrInvalidSeverity, raw),
			dErrors.CodeValidation,
			"severity must be low, mid, or high",
		)
	}
	return s, nil
}

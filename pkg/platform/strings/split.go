// Package strings provides string list helpers for configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits raw on sep, trims each element and drops empty and
// repeated entries. Order of first occurrence is kept. An empty input
// yields nil.
//
// Example:
//
//	SplitList(" kafka-1:9092, ,kafka-2:9092,kafka-1:9092", ",")
//	// Returns: []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, sep)
	seen := make(map[string]struct{}, len(parts))
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

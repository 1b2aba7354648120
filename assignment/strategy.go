package assignment

import (
	"fmt"
	"strings"
)

// Strategy is an assignment policy controlling how strictly a tool attributes
// mutation counts to signatures.
type Strategy string

const (
	Regular Strategy = "regular"
	Remove  Strategy = "remove"
	Refit   Strategy = "refit"

	// All asks every tool for each of the concrete strategies.
	All Strategy = "all"
)

// Strategies lists the concrete strategies in the order they are processed.
var Strategies = []Strategy{Regular, Remove, Refit}

// ParseStrategy accepts a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case Regular, Remove, Refit, All:
		return st, nil
	}

	return "", fmt.Errorf("unknown strategy %q: must be one of regular, remove, refit, all", s)
}

// Expand returns the concrete strategies a run of s produces.
func (s Strategy) Expand() []Strategy {
	if s == All {
		return append([]Strategy(nil), Strategies...)
	}

	return []Strategy{s}
}

// Summary is the strategy whose relative tables feed the cross-tool
// assignment summary.
func (s Strategy) Summary() Strategy {
	if s == All {
		return Refit
	}

	return s
}

// Title is the capitalized form used in the metrics table.
func (s Strategy) Title() string {
	if s == "" {
		return ""
	}

	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Package trigger decides whether a push should produce a CI job.
package trigger

import (
	"strings"

	"extci/internal/models"
)

// SkipMarker suppresses CI when present anywhere in the head commit message.
const SkipMarker = "[skip ci]"

type Decision int

const (
	// Run means the push produces a job.
	Run Decision = iota
	// Skip means the commit asked for CI to be suppressed.
	Skip
	// Ignore means the push has nothing to build (branch deletion).
	Ignore
)

func (d Decision) String() string {
	switch d {
	case Run:
		return "run"
	case Skip:
		return "skip"
	case Ignore:
		return "ignore"
	}
	return "unknown"
}

// ShouldSkip reports whether message carries the skip marker. The match is
// a literal, case-sensitive substring test.
func ShouldSkip(message string) bool {
	return strings.Contains(message, SkipMarker)
}

// Decide maps a push event onto a Decision. It has no side effects.
func Decide(evt models.PushEvent) Decision {
	if evt.Deleted {
		return Ignore
	}
	if ShouldSkip(evt.HeadCommit.Message) {
		return Skip
	}
	return Run
}

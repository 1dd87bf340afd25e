package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunIDPrefix prefixes every sync run identifier.
const RunIDPrefix = "run-"

// NewRunID generates a sortable identifier for a sync run.
// Format: run-{ulid_lowercase}.
func NewRunID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(timeNow()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return RunIDPrefix + strings.ToLower(id.String()), nil
}

// RunIDTime extracts the start time encoded in a run id.
func RunIDTime(runID string) (time.Time, error) {
	if !strings.HasPrefix(runID, RunIDPrefix) {
		return time.Time{}, ErrInvalidArgument.WithDetails("run id must start with " + RunIDPrefix)
	}
	id, err := ulid.Parse(strings.ToUpper(runID[len(RunIDPrefix):]))
	if err != nil {
		return time.Time{}, ErrInvalidArgument.WithCause(err)
	}
	return ulid.Time(id.Time()), nil
}

// timeNow is a hook for testing.
var timeNow = time.Now

package attendance

import (
	"fmt"
	"time"
)

// Clock abstracts time.Now so the state machine can be tested at fixed
// instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock is the wall clock used outside of tests.
var SystemClock Clock = systemClock{}

// clockOnDate resolves a "HH:MM" clock string onto the calendar date of ref,
// in ref's location.
func clockOnDate(clock string, ref time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}

	return time.Date(ref.Year(), ref.Month(), ref.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, ref.Location()), nil
}

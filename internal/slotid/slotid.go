// Package slotid computes the deterministic composite identifiers that key
// the laundry slot grid. An identifier encodes date, hour range, and
// machine, e.g. "2024-12-25_T08-09_M001", so the same (date, hour, machine)
// triple always resolves to the same record regardless of when the grid was
// generated.
package slotid

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date form used in identifiers and
// stored on every slot.
const DateLayout = "2006-01-02"

const clockLayout = "15:04"

// Build returns the identifier of the slot starting at startHour on the
// given date and machine. The hour range always spans one hour.
func Build(date string, startHour int, machineID string) string {
	return fmt.Sprintf("%s_T%02d-%02d_%s", date, startHour, startHour+1, machineID)
}

// NormalizeDate parses s as a calendar date and returns it in canonical
// YYYY-MM-DD form.
func NormalizeDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return t.Format(DateLayout), nil
}

// HourFromClock extracts the hour from an "HH:MM" clock string. Only the
// hour component is significant for slot addressing; minutes are ignored.
func HourFromClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour(), nil
}

// StartOfSlot returns the absolute start time of the slot beginning at the
// given hour of a canonical date, in the given location.
func StartOfSlot(date string, hour int, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc), nil
}

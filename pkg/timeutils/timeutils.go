package timeutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Supported schedule frequencies.
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseHHMM parses a 24h "HH:MM" wall-clock time.
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// ParseWeekday resolves an English weekday name, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid day of week %q", s)
	}
	return d, nil
}

// NextRun returns the next UTC timestamp strictly after now at which a
// schedule with the given frequency, target weekday and HH:MM time fires.
//
// A schedule whose target weekday equals today always resolves to the next
// cycle's occurrence, never later today, so a poll running before the
// intended wall-clock time cannot double-fire within the same calendar day.
// dayOfWeek is ignored for daily schedules.
func NextRun(frequency, dayOfWeek, hhmm string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}

	now = now.UTC()
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)

	// Baseline correction: the weekly/biweekly/monthly branches below need a
	// candidate strictly in the future before any day arithmetic.
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	switch frequency {
	case FrequencyDaily:
		return candidate, nil
	case FrequencyWeekly, FrequencyBiweekly:
		target, err := ParseWeekday(dayOfWeek)
		if err != nil {
			return time.Time{}, err
		}
		offset := (int(target) - int(candidate.Weekday()) + 7) % 7
		if frequency == FrequencyWeekly {
			if offset == 0 {
				offset = 7
			}
		} else {
			if offset == 0 {
				offset = 14
			} else {
				offset += 7
			}
		}
		return candidate.AddDate(0, 0, offset), nil
	case FrequencyMonthly:
		// AddDate normalizes month-end overflow to the next valid date.
		return candidate.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid frequency %q", frequency)
	}
}

package booking

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay is the length of a calendar day in minutes.
	MinutesPerDay = 1440
	// LastMinuteOfDay is 23:59.
	LastMinuteOfDay = MinutesPerDay - 1
	// StartStepMinutes is the alignment of every candidate start time.
	StartStepMinutes = 5
)

// ToMinutes converts "HH:MM" (or "HH:MM:SS") into minutes since midnight.
// "24:00" is accepted and yields 1440.
func ToMinutes(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	hours, err := parseClockPart(parts[0], 24)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	minutes, err := parseClockPart(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	seconds := 0
	if len(parts) == 3 {
		seconds, err = parseClockPart(parts[2], 59)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
	}
	if hours == 24 && (minutes != 0 || seconds != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return hours*60 + minutes, nil
}

func parseClockPart(raw string, maxValue int) (int, error) {
	if len(raw) != 2 {
		return 0, ErrInvalidTime
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 || value > maxValue {
		return 0, ErrInvalidTime
	}
	return value, nil
}

// ToTimeString renders minutes as "HH:MM". Negative input clamps to 00:00 and
// values past midnight wrap into the next day.
func ToTimeString(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	minutes %= MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeBusinessEnd maps a closing time of 00:00 to end of day.
func NormalizeBusinessEnd(end int) int {
	if end == 0 {
		return MinutesPerDay
	}
	return end
}

// NextStartBoundary is the first 5-minute boundary strictly after now, capped at 23:59.
func NextStartBoundary(nowMinutes int) int {
	next := (nowMinutes/StartStepMinutes + 1) * StartStepMinutes
	if next > LastMinuteOfDay {
		return LastMinuteOfDay
	}
	return next
}

// AlignUp rounds minutes up to a multiple of step.
func AlignUp(minutes int, step int) int {
	if step <= 0 {
		return minutes
	}
	remainder := minutes % step
	if remainder == 0 {
		return minutes
	}
	return minutes + step - remainder
}

// Interval is a half-open [Start, End) range of minutes.
type Interval struct {
	Start int
	End   int
}

// NewInterval builds an interval starting at start and lasting duration minutes.
func NewInterval(start int, duration int) Interval {
	return Interval{Start: start, End: start + duration}
}

// Overlaps reports whether two half-open intervals share any minute. Touching endpoints do not overlap.
func (interval Interval) Overlaps(other Interval) bool {
	return interval.Start < other.End && interval.End > other.Start
}

// Expand widens the interval by buffer minutes on both sides.
func (interval Interval) Expand(buffer int) Interval {
	if buffer <= 0 {
		return interval
	}
	return Interval{Start: interval.Start - buffer, End: interval.End + buffer}
}

// Duration returns the interval length in minutes.
func (interval Interval) Duration() int {
	return interval.End - interval.Start
}

// Contains reports whether minute lies inside the interval.
func (interval Interval) Contains(minute int) bool {
	return minute >= interval.Start && minute < interval.End
}

func (interval Interval) String() string {
	return ToTimeString(interval.Start) + "~" + ToTimeString(interval.End)
}

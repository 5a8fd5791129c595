package booking

import (
	"fmt"
	"sort"
	"strings"
)

// Reason is why a window cannot be booked.
type Reason string

// Denial reasons, listed in reporting priority.
const (
	ReasonHoliday              Reason = "holiday"
	ReasonResourceUnavailable  Reason = "resource_unavailable"
	ReasonMemberTypeRestricted Reason = "member_type_restricted"
	ReasonBeforeHours          Reason = "before_hours"
	ReasonAfterHours           Reason = "after_hours"
	ReasonExceedsBusinessHours Reason = "exceeds_business_hours"
	ReasonBelowMinimum         Reason = "below_minimum"
	ReasonInvalidGranularity   Reason = "invalid_granularity"
	ReasonTimeConflict         Reason = "time_conflict"
	ReasonExceedsMaximum       Reason = "exceeds_maximum"
)

var reasonPriorities = map[Reason]int{
	ReasonHoliday:              0,
	ReasonResourceUnavailable:  0,
	ReasonMemberTypeRestricted: 0,
	ReasonBeforeHours:          1,
	ReasonAfterHours:           2,
	ReasonExceedsBusinessHours: 3,
	ReasonBelowMinimum:         4,
	ReasonInvalidGranularity:   5,
	ReasonTimeConflict:         6,
	ReasonExceedsMaximum:       7,
}

// Priority orders reasons; lower numbers are reported first.
func (reason Reason) Priority() int {
	priority, ok := reasonPriorities[reason]
	if !ok {
		return len(reasonPriorities)
	}
	return priority
}

// LimitingFactor names what caps the longest bookable duration.
type LimitingFactor string

// Limiting factors.
const (
	LimitBusinessEnd LimitingFactor = "business_end"
	LimitNextBooking LimitingFactor = "next_booking"
	LimitSystemCap   LimitingFactor = "system_cap"
)

// AvailabilityStatus is the verdict for one window.
type AvailabilityStatus string

// Availability statuses.
const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusUnavailable AvailabilityStatus = "unavailable"
)

// Issue is one failed rule with enough detail for the caller to suggest a fix.
type Issue struct {
	Reason   Reason
	Priority int
	Message  string
	// Session is the 1-based session the issue belongs to, or 0 for the whole window.
	Session              int
	Conflicts            []BookedInterval
	ClosestValidDuration int
	ValidDurations       []int
	MaxDuration          int
	LimitingFactors      []LimitingFactor
}

// AvailabilityResult is the outcome of a single-window or plan check.
type AvailabilityResult struct {
	Status          AvailabilityStatus
	Resource        ResourceID
	Date            Date
	Start           int
	End             int
	Sessions        []Interval
	Reason          Reason
	Detail          string
	Issues          []Issue
	MaxDuration     int
	LimitingFactors []LimitingFactor
}

// Available reports whether every rule passed.
func (result AvailabilityResult) Available() bool {
	return result.Status == StatusAvailable
}

// ResourceSchedule is one resource's profile, bookable window and existing bookings for a date.
type ResourceSchedule struct {
	Profile ResourceProfile
	Window  ScheduleWindow
	Booked  []BookedInterval
}

// EffectiveStart is the earliest bookable minute given the today rule.
func (schedule ResourceSchedule) EffectiveStart(earliest int) int {
	if earliest > schedule.Window.BusinessStart {
		return earliest
	}
	return schedule.Window.BusinessStart
}

// BusinessEnd returns the normalized closing minute.
func (schedule ResourceSchedule) BusinessEnd() int {
	return NormalizeBusinessEnd(schedule.Window.BusinessEnd)
}

type windowCheck struct {
	schedule      ResourceSchedule
	earliestStart int
	memberType    string
	start         int
	plan          SessionPlan
}

// checkWindow applies every rule to a plan starting at start and collects all failures.
// A single-session plan is the plain single-window check.
func checkWindow(check windowCheck) AvailabilityResult {
	profile := check.schedule.Profile
	window := check.schedule.Window
	businessEnd := check.schedule.BusinessEnd()
	sessions := check.plan.Intervals(check.start)
	span := NewInterval(check.start, check.plan.TotalSpan())

	result := AvailabilityResult{
		Resource: profile.ID,
		Date:     window.Date,
		Start:    span.Start,
		End:      span.End,
		Sessions: sessions,
	}
	var issues []Issue

	if window.IsHoliday {
		issues = append(issues, newIssue(ReasonHoliday, 0, "closed on "+window.Date.String()))
	}
	if profile.Status == ResourceStatusSuspended {
		issues = append(issues, newIssue(ReasonResourceUnavailable, 0, fmt.Sprintf("%s %s is not accepting bookings", profile.Kind, profile.ID)))
	}
	if profile.Prohibits(check.memberType) {
		issues = append(issues, newIssue(ReasonMemberTypeRestricted, 0, fmt.Sprintf("member type %q may not book %s %s", check.memberType, profile.Kind, profile.ID)))
	}

	if span.Start < window.BusinessStart {
		issues = append(issues, newIssue(ReasonBeforeHours, 0, "opens at "+ToTimeString(window.BusinessStart)))
	} else if span.Start < check.earliestStart {
		issues = append(issues, newIssue(ReasonBeforeHours, 0, "earliest start today is "+ToTimeString(check.earliestStart)))
	}
	if span.Start >= businessEnd {
		issues = append(issues, newIssue(ReasonAfterHours, 0, "closes at "+ToTimeString(businessEnd)))
	}
	if span.End > businessEnd {
		issues = append(issues, newIssue(ReasonExceedsBusinessHours, 0, fmt.Sprintf("ends at %s, after closing at %s", ToTimeString(span.End), ToTimeString(businessEnd))))
	}

	granularity := profile.Granularity()
	minimum := profile.MinDurationMinutes
	sessionNumber := func(index int) int {
		if len(sessions) == 1 {
			return 0
		}
		return index + 1
	}
	for index, session := range sessions {
		duration := session.Duration()
		limit := maxDurationAt(check.schedule, session.Start)
		if index == 0 {
			result.MaxDuration = limit.maxDuration
			result.LimitingFactors = limit.factors
		}
		if duration < minimum {
			issue := newIssue(ReasonBelowMinimum, sessionNumber(index), fmt.Sprintf("%d minutes is below the %d minute minimum", duration, minimum))
			issue.ClosestValidDuration = minimum
			issues = append(issues, issue)
		} else if (duration-minimum)%granularity != 0 {
			issue := newIssue(ReasonInvalidGranularity, sessionNumber(index), fmt.Sprintf("%d minutes is not %d plus a multiple of %d", duration, minimum, granularity))
			issue.ClosestValidDuration = closestValidDuration(duration, minimum, granularity, limit.maxDuration)
			issue.ValidDurations = validDurations(minimum, granularity, limit.maxDuration)
			issues = append(issues, issue)
		}
		if duration > limit.maxDuration {
			issue := newIssue(ReasonExceedsMaximum, sessionNumber(index), fmt.Sprintf("%d minutes exceeds the %d minute maximum (%s)", duration, limit.maxDuration, joinFactors(limit.factors)))
			issue.MaxDuration = limit.maxDuration
			issue.LimitingFactors = limit.factors
			issues = append(issues, issue)
		}
	}

	if conflicts := collidingBookings(sessions, check.schedule.Booked, profile.BufferMinutes); len(conflicts) > 0 {
		ranges := make([]string, 0, len(conflicts))
		for _, conflict := range conflicts {
			ranges = append(ranges, conflict.Interval().String())
		}
		issue := newIssue(ReasonTimeConflict, 0, fmt.Sprintf("overlaps existing bookings %s with a %d minute buffer", strings.Join(ranges, ", "), profile.BufferMinutes))
		issue.Conflicts = conflicts
		issues = append(issues, issue)
	}

	sort.SliceStable(issues, func(left, right int) bool {
		return issues[left].Priority < issues[right].Priority
	})
	result.Issues = issues
	if len(issues) == 0 {
		result.Status = StatusAvailable
		return result
	}
	result.Status = StatusUnavailable
	result.Reason = issues[0].Reason
	result.Detail = issues[0].Message
	return result
}

func newIssue(reason Reason, session int, message string) Issue {
	return Issue{Reason: reason, Priority: reason.Priority(), Session: session, Message: message}
}

// collidingBookings lists every booking whose buffered range overlaps any session, once each.
func collidingBookings(sessions []Interval, booked []BookedInterval, buffer int) []BookedInterval {
	var conflicts []BookedInterval
	for _, existing := range booked {
		guarded := existing.Interval().Expand(buffer)
		for _, session := range sessions {
			if session.Overlaps(guarded) {
				conflicts = append(conflicts, existing)
				break
			}
		}
	}
	return conflicts
}

type durationLimit struct {
	maxDuration int
	factors     []LimitingFactor
}

// maxDurationAt computes the longest valid duration from start, capped by closing time,
// the next buffered booking and the resource's hard cap.
func maxDurationAt(schedule ResourceSchedule, start int) durationLimit {
	profile := schedule.Profile
	untilClose := schedule.BusinessEnd() - start
	untilNext := untilNextBooking(start, schedule.Booked, profile.BufferMinutes)
	systemCap := profile.MaxDuration()

	ceiling := untilClose
	if untilNext < ceiling {
		ceiling = untilNext
	}
	if systemCap < ceiling {
		ceiling = systemCap
	}
	if ceiling < 0 {
		ceiling = 0
	}

	var factors []LimitingFactor
	if untilClose == ceiling {
		factors = append(factors, LimitBusinessEnd)
	}
	if untilNext == ceiling {
		factors = append(factors, LimitNextBooking)
	}
	if systemCap == ceiling {
		factors = append(factors, LimitSystemCap)
	}

	minimum := profile.MinDurationMinutes
	if ceiling < minimum {
		return durationLimit{maxDuration: ceiling, factors: factors}
	}
	granularity := profile.Granularity()
	return durationLimit{
		maxDuration: minimum + ((ceiling-minimum)/granularity)*granularity,
		factors:     factors,
	}
}

func untilNextBooking(start int, booked []BookedInterval, buffer int) int {
	gap := MinutesPerDay * 2
	for _, existing := range booked {
		guarded := existing.Interval().Expand(buffer)
		if guarded.Contains(start) {
			return 0
		}
		if guarded.Start >= start && guarded.Start-start < gap {
			gap = guarded.Start - start
		}
	}
	return gap
}

func closestValidDuration(duration int, minimum int, granularity int, maxDuration int) int {
	lower := minimum + ((duration-minimum)/granularity)*granularity
	upper := lower + granularity
	if upper > maxDuration && lower >= minimum {
		return lower
	}
	if upper-duration < duration-lower {
		return upper
	}
	return lower
}

func validDurations(minimum int, granularity int, maxDuration int) []int {
	durations := make([]int, 0, maxReportedValidDurationsCount)
	for duration := minimum; duration <= maxDuration && len(durations) < maxReportedValidDurationsCount; duration += granularity {
		durations = append(durations, duration)
	}
	return durations
}

func joinFactors(factors []LimitingFactor) string {
	names := make([]string, 0, len(factors))
	for _, factor := range factors {
		names = append(names, string(factor))
	}
	return strings.Join(names, ", ")
}

// StartOption is a start time with every resource that can take the plan.
type StartOption struct {
	Start     int
	StartTime string
	End       int
	Resources []ResourceID
	Sessions  []Interval
}

// ResourceDenial is why one resource cannot take a start time.
type ResourceDenial struct {
	Resource ResourceID
	Reason   Reason
	Detail   string
}

// DeniedStart is a start time no resource can take.
type DeniedStart struct {
	Start     int
	StartTime string
	Denials   []ResourceDenial
}

// OpenStarts is the multi-option search result.
type OpenStarts struct {
	Date        Date
	Closed      bool
	Available   []StartOption
	Unavailable []DeniedStart
}

// findOpenStarts scans 5-minute aligned starts across every resource of the schedule.
// Booked intervals come from the schedule and are never reloaded per candidate.
func findOpenStarts(schedule ScheduleContext, memberType string, plan SessionPlan) OpenStarts {
	result := OpenStarts{Date: schedule.Date}
	if len(schedule.Resources) == 0 {
		return result
	}
	span := plan.TotalSpan()
	first := -1
	last := -1
	for _, resource := range schedule.Resources {
		resourceFirst := AlignUp(resource.EffectiveStart(schedule.EarliestStart), StartStepMinutes)
		resourceLast := resource.BusinessEnd() - span
		if first < 0 || resourceFirst < first {
			first = resourceFirst
		}
		if resourceLast > last {
			last = resourceLast
		}
	}

	for start := first; start <= last; start += StartStepMinutes {
		option := StartOption{Start: start, StartTime: ToTimeString(start), End: start + span}
		denied := DeniedStart{Start: start, StartTime: ToTimeString(start)}
		for _, resource := range schedule.Resources {
			verdict := checkWindow(windowCheck{
				schedule:      resource,
				earliestStart: schedule.EarliestStart,
				memberType:    memberType,
				start:         start,
				plan:          plan,
			})
			if verdict.Available() {
				option.Resources = append(option.Resources, resource.Profile.ID)
				option.Sessions = verdict.Sessions
				continue
			}
			denied.Denials = append(denied.Denials, ResourceDenial{
				Resource: resource.Profile.ID,
				Reason:   verdict.Reason,
				Detail:   verdict.Detail,
			})
		}
		if len(option.Resources) > 0 {
			result.Available = append(result.Available, option)
		} else {
			result.Unavailable = append(result.Unavailable, denied)
		}
	}
	return result
}

package booking

import (
	"context"
	"errors"
	"fmt"
)

// ScheduleContext is everything a conflict check needs for one branch and date.
type ScheduleContext struct {
	Branch        BranchID
	Date          Date
	BusinessHours ScheduleWindow
	IsToday       bool
	// EarliestStart is 0 on future dates and the next 5-minute boundary after now today.
	EarliestStart int
	Resources     []ResourceSchedule
}

// Resource returns the schedule for one resource.
func (schedule ScheduleContext) Resource(resource ResourceID) (ResourceSchedule, bool) {
	for _, candidate := range schedule.Resources {
		if candidate.Profile.ID == resource {
			return candidate, true
		}
	}
	return ResourceSchedule{}, false
}

type scheduleQuery struct {
	branch   BranchID
	kind     ResourceKind
	resource ResourceID
	date     Date
}

// loadScheduleContext reads business hours, resources and bookings. A closed day returns
// the loaded context together with ErrHoliday.
func (service *Service) loadScheduleContext(ctx context.Context, query scheduleQuery) (ScheduleContext, error) {
	now := service.nowFn()
	today := DateOf(now)
	schedule := ScheduleContext{Branch: query.branch, Date: query.date}
	if query.date.Equal(today) {
		schedule.IsToday = true
		schedule.EarliestStart = NextStartBoundary(now.Hour()*60 + now.Minute())
	}

	hours, err := service.store.BusinessHours(ctx, query.branch, query.date)
	if err != nil {
		return ScheduleContext{}, WrapError(operationLoadSchedule, errorSubjectSchedule, errorCodeLoad, err)
	}
	hours.Date = query.date
	hours.BusinessEnd = NormalizeBusinessEnd(hours.BusinessEnd)
	schedule.BusinessHours = hours

	profiles, err := service.loadProfiles(ctx, query)
	if err != nil {
		return ScheduleContext{}, err
	}
	booked, err := service.store.BookedIntervals(ctx, query.branch, query.kind, query.resource, query.date)
	if err != nil {
		return ScheduleContext{}, WrapError(operationLoadSchedule, errorSubjectReservation, errorCodeLoad, err)
	}
	bookedByResource := make(map[ResourceID][]BookedInterval, len(profiles))
	for _, interval := range booked {
		if !query.resource.IsZero() {
			interval.ResourceID = query.resource
		}
		bookedByResource[interval.ResourceID] = append(bookedByResource[interval.ResourceID], interval)
	}

	for _, profile := range profiles {
		window := hours
		if profile.Kind == ResourceKindInstructor {
			window, err = service.instructorWindow(ctx, query.branch, profile.ID, hours)
			if err != nil {
				return ScheduleContext{}, err
			}
		}
		schedule.Resources = append(schedule.Resources, ResourceSchedule{
			Profile: profile,
			Window:  window,
			Booked:  bookedByResource[profile.ID],
		})
	}

	if hours.IsHoliday {
		return schedule, WrapError(operationLoadSchedule, errorSubjectSchedule, errorCodeLoad, ErrHoliday)
	}
	return schedule, nil
}

func (service *Service) loadProfiles(ctx context.Context, query scheduleQuery) ([]ResourceProfile, error) {
	if !query.resource.IsZero() {
		profile, err := service.store.ResourceProfile(ctx, query.branch, query.kind, query.resource)
		if err != nil {
			return nil, WrapError(operationLoadSchedule, errorSubjectResource, errorCodeLoad, err)
		}
		return []ResourceProfile{normalizeProfile(profile, query.kind)}, nil
	}
	profiles, err := service.store.ResourceProfiles(ctx, query.branch, query.kind)
	if err != nil {
		return nil, WrapError(operationLoadSchedule, errorSubjectResource, errorCodeLoad, err)
	}
	if len(profiles) == 0 {
		return nil, WrapError(operationLoadSchedule, errorSubjectResource, errorCodeLoad,
			fmt.Errorf("%w: no %s resources at branch %s", ErrResourceNotFound, query.kind, query.branch))
	}
	normalized := make([]ResourceProfile, 0, len(profiles))
	for _, profile := range profiles {
		normalized = append(normalized, normalizeProfile(profile, query.kind))
	}
	return normalized, nil
}

func normalizeProfile(profile ResourceProfile, kind ResourceKind) ResourceProfile {
	if profile.Kind == "" {
		profile.Kind = kind
	}
	if profile.Status == "" {
		profile.Status = ResourceStatusAvailable
	}
	if profile.MinDurationMinutes < 0 {
		profile.MinDurationMinutes = 0
	}
	if profile.Kind == ResourceKindInstructor && profile.MinDurationMinutes == 0 {
		profile.MinDurationMinutes = DefaultInstructorMinimum
	}
	return profile
}

// instructorWindow narrows the branch hours to the instructor's working hours for the date.
func (service *Service) instructorWindow(ctx context.Context, branch BranchID, instructor ResourceID, hours ScheduleWindow) (ScheduleWindow, error) {
	working, found, err := service.store.WorkingHours(ctx, branch, instructor, hours.Date)
	if err != nil {
		return ScheduleWindow{}, WrapError(operationLoadSchedule, errorSubjectSchedule, errorCodeLoad, err)
	}
	if !found {
		working = WorkingHours{Start: DefaultInstructorWorkStart, End: DefaultInstructorWorkEnd}
	}
	window := ScheduleWindow{
		Date:          hours.Date,
		BusinessStart: working.Start,
		BusinessEnd:   NormalizeBusinessEnd(working.End),
		IsHoliday:     hours.IsHoliday || working.DayOff,
	}
	return window, nil
}

// memberType resolves the member's type for restriction checks. A zero member has no type.
func (service *Service) memberType(ctx context.Context, branch BranchID, member MemberID) (string, error) {
	if member.IsZero() {
		return "", nil
	}
	memberType, err := service.store.MemberType(ctx, branch, member)
	if err != nil {
		return "", WrapError(operationLoadSchedule, errorSubjectMember, errorCodeLoad, err)
	}
	return memberType, nil
}

// validateDate rejects dates before today without touching the store.
func (service *Service) validateDate(date Date) error {
	if date.IsZero() {
		return ErrInvalidDate
	}
	if date.Before(DateOf(service.nowFn())) {
		return fmt.Errorf("%w: %s", ErrDateInPast, date)
	}
	return nil
}

func isHoliday(err error) bool {
	return errors.Is(err, ErrHoliday)
}

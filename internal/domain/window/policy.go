package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Schedule is the weekly closing moment in a fixed civil timezone.
type Schedule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

// DefaultSchedule closes voting on Saturdays at 18:00 Moscow time.
func DefaultSchedule() Schedule {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return Schedule{Weekday: time.Saturday, Hour: 18, Minute: 0, Location: loc}
}

// ParseSchedule builds a Schedule from a weekday name, an "HH:MM" time and
// an IANA timezone name.
func ParseSchedule(weekday, clock, timezone string) (Schedule, error) {
	day, err := parseWeekday(weekday)
	if err != nil {
		return Schedule{}, err
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return Schedule{}, err
	}
	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return Schedule{}, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	return Schedule{Weekday: day, Hour: hour, Minute: minute, Location: loc}, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func parseClock(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ComputeNextWindowClose returns the first scheduled close strictly after openedAt.
// The weekday and wall-clock time are evaluated in the schedule's timezone.
func ComputeNextWindowClose(openedAt time.Time, s Schedule) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := openedAt.In(loc)
	days := (int(s.Weekday) - int(local.Weekday()) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()+days, s.Hour, s.Minute, 0, 0, loc)
	if !candidate.After(openedAt) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+days+7, s.Hour, s.Minute, 0, 0, loc)
	}
	return candidate
}

// Evaluate derives the voting state of a week at now.
func Evaluate(ws *WeekState, now time.Time) State {
	if ws == nil || ws.OpenedAt == nil {
		return StateNotOpened
	}
	if ws.ClosesAt != nil && !now.Before(*ws.ClosesAt) {
		return StateClosed
	}
	return StateOpen
}

// StateError converts a non-open state into its rejection error.
func StateError(state State) error {
	switch state {
	case StateNotOpened:
		return ErrVotingNotOpenedYet
	case StateClosed:
		return ErrVotingClosed
	default:
		return nil
	}
}

// Title is the display name of a week.
func Title(weekID int) string {
	return "Week " + strconv.Itoa(weekID)
}

package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jnst/order-stats-pipeline/internal/model"
)

const dateLayout = "2006-01-02"

// ExpandPeriod resolves a period selector into the calendar dates it covers:
//
//	"d" + YYYY-MM-DD -> that single date
//	"w" + YYYY-WW    -> the ISO week's Monday through Sunday
//	"m" + YYYY-MM    -> every date in the month
//	"y" + YYYY       -> every date in the year
//
// An unrecognized period yields an empty result and no error; the caller must
// treat it as invalid input. A date that does not match the period's format
// yields ErrInvalidDate.
func ExpandPeriod(period, date string) ([]string, error) {
	switch period {
	case "d":
		if _, err := time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid day", model.ErrInvalidDate, date)
		}

		return []string{date}, nil
	case "w":
		return expandWeek(date)
	case "m":
		start, err := time.Parse("2006-01", date)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid month", model.ErrInvalidDate, date)
		}

		return datesWhile(start, func(d time.Time) bool { return d.Month() == start.Month() }), nil
	case "y":
		start, err := time.Parse("2006", date)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid year", model.ErrInvalidDate, date)
		}

		return datesWhile(start, func(d time.Time) bool { return d.Year() == start.Year() }), nil
	default:
		return nil, nil
	}
}

func expandWeek(date string) ([]string, error) {
	yearStr, weekStr, ok := strings.Cut(date, "-")
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid ISO week", model.ErrInvalidDate, date)
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid ISO week", model.ErrInvalidDate, date)
	}

	week, err := strconv.Atoi(weekStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid ISO week", model.ErrInvalidDate, date)
	}

	monday := isoWeekStart(year, week)
	if y, w := monday.ISOWeek(); y != year || w != week {
		return nil, fmt.Errorf("%w: year %d has no ISO week %d", model.ErrInvalidDate, year, week)
	}

	dates := make([]string, 7)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i).Format(dateLayout)
	}

	return dates, nil
}

// isoWeekStart returns the Monday of the given ISO week. January 4th is
// always in week 1.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)

	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}

	week1Monday := jan4.AddDate(0, 0, 1-weekday)

	return week1Monday.AddDate(0, 0, (week-1)*7)
}

func datesWhile(start time.Time, in func(time.Time) bool) []string {
	var dates []string
	for d := start; in(d); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}

	return dates
}

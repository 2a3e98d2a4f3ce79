package server

import (
	"fmt"
	"strings"
	"time"
)

// DatetimeResult mirrors the calendar details callers of current_datetime
// get. Weekday counts from 0 = Monday.
type DatetimeResult struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Datetime    string `json:"datetime"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
	Hour        int    `json:"hour"`
	Minute      int    `json:"minute"`
	Second      int    `json:"second"`
	Weekday     int    `json:"weekday"`
	WeekdayName string `json:"weekday_name"`
	DayOfYear   int    `json:"day_of_year"`
	WeekOfYear  int    `json:"week_of_year"`
	IsLeapYear  bool   `json:"is_leap_year"`
	Timezone    string `json:"timezone"`
	Unix        int64  `json:"unix"`
}

// CurrentDatetime renders now in the requested IANA timezone, or in now's
// own location when timezone is empty.
func CurrentDatetime(timezone string, now time.Time) (DatetimeResult, error) {
	tz := strings.TrimSpace(timezone)
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return DatetimeResult{}, fmt.Errorf("unknown timezone %q", timezone)
		}
		now = now.In(loc)
	}

	year := now.Year()
	_, week := now.ISOWeek()

	return DatetimeResult{
		Date:        now.Format("2006-01-02"),
		Time:        now.Format("15:04:05"),
		Datetime:    now.Format("2006-01-02 15:04:05"),
		Year:        year,
		Month:       int(now.Month()),
		Day:         now.Day(),
		Hour:        now.Hour(),
		Minute:      now.Minute(),
		Second:      now.Second(),
		Weekday:     (int(now.Weekday()) + 6) % 7,
		WeekdayName: now.Weekday().String(),
		DayOfYear:   now.YearDay(),
		WeekOfYear:  week,
		IsLeapYear:  year%4 == 0 && year%100 != 0 || year%400 == 0,
		Timezone:    now.Location().String(),
		Unix:        now.Unix(),
	}, nil
}

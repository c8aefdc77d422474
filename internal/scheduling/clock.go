package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day with minute precision, stored as minutes since
// midnight. Seconds and below are truncated everywhere so storage-layer
// precision artifacts can never produce phantom overlaps.
type ClockTime int

const minutesPerDay = 24 * 60

// ParseClock normalises a free-form time-of-day string into a ClockTime.
// Accepted shapes: "08:30", "08:30:15" (seconds dropped), "8:30 am",
// "9:45 P.M." (meridiem case-insensitive, dots stripped).
func ParseClock(raw string) (ClockTime, error) {
	s := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, ".", "")))
	if s == "" {
		return 0, fmt.Errorf("empty time value")
	}

	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}

	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid hour in %q", raw)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid hour in %q", raw)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("invalid hour in %q", raw)
		}
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}

	return ClockTime(hour*60 + minute), nil
}

// ClockOf truncates a wall-clock instant to minute precision.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// Add returns the clock time shifted by the given number of minutes.
func (t ClockTime) Add(minutes int) ClockTime {
	return t + ClockTime(minutes)
}

// Sub returns the difference t - other in minutes.
func (t ClockTime) Sub(other ClockTime) int {
	return int(t - other)
}

// Valid reports whether the value is a representable time of day.
func (t ClockTime) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// String renders the canonical HH:MM form.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON renders the canonical HH:MM form.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts any form ParseClock accepts.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as HH:MM:00 for a postgres TIME column.
func (t ClockTime) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Scan reads postgres TIME values, truncating any sub-minute precision.
func (t *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = ClockOf(v)
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case nil:
		*t = 0
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (t *ClockTime) scanString(s string) error {
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Overlaps is the half-open interval intersection test: [aStart, aEnd) and
// [bStart, bEnd) overlap iff aStart < bEnd and bStart < aEnd.
func Overlaps(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return aStart < bEnd && bStart < aEnd
}

// Date is a calendar day without a time component.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return DateOf(t), nil
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// Weekday numbers days 0=Monday through 6=Sunday, matching the stored
// weekly schedule entries.
func (d Date) Weekday() int {
	return (int(d.t.Weekday()) + 6) % 7
}

// WeekdayName returns the English day name.
func (d Date) WeekdayName() string {
	return d.t.Weekday().String()
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Equal compares calendar days.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// String renders the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return d.t.Format(dateLayout)
}

// MarshalJSON renders the canonical YYYY-MM-DD form.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the canonical YYYY-MM-DD form.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the day for a postgres DATE column.
func (d Date) Value() (driver.Value, error) {
	return d.t, nil
}

// Scan reads postgres DATE values.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

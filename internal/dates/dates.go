package dates

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const Layout = "2006-01-02"

// Date is a calendar date without a time component. The wrapped time is
// always midnight UTC so that equality and AddDate behave as pure calendar
// arithmetic regardless of the zone the date was observed in.
type Date struct {
	t time.Time
}

func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// FromTime takes the calendar components of t in its own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

func (d Date) String() string {
	return d.t.Format(Layout)
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// WeekStrip returns the 7 consecutive dates starting at anchor.
func WeekStrip(anchor Date) []Date {
	strip := make([]Date, 7)
	for i := range strip {
		strip[i] = anchor.AddDays(i)
	}
	return strip
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.t, nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("scanning date: unsupported type %T", src)
	}
}

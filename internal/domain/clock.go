package domain

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a simulated time of day, stored as seconds since midnight.
// Clocks compare with the ordinary integer operators.
type Clock int

const (
	// Minute is the scheduler's tick length.
	Minute Clock = 60
	Hour   Clock = 60 * Minute

	// EndOfDay is the deadline given to parcels without one ("EOD").
	EndOfDay Clock = 23*Hour + 59*Minute + 59
)

func NewClock(hour, minute, second int) Clock {
	return Clock(hour)*Hour + Clock(minute)*Minute + Clock(second)
}

// ParseClock reads the exchange format "HH:MM AM/PM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("3:04 PM", strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, ErrBadClock)
	}
	return NewClock(t.Hour(), t.Minute(), 0), nil
}

// ParseClock24 reads the "HH:MM:SS" form used inside DELAY codes.
func ParseClock24(s string) (Clock, error) {
	t, err := time.Parse("15:04:05", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, ErrBadClock)
	}
	return NewClock(t.Hour(), t.Minute(), t.Second()), nil
}

func (c Clock) Hour() int { return int(c / Hour) }
func (c Clock) Minute() int { return int(c%Hour) / int(Minute) }
func (c Clock) Second() int { return int(c % Minute) }

// Add returns the clock advanced by d, truncated to whole seconds.
func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Second)
}

// Sub returns the duration c-o.
func (c Clock) Sub(o Clock) time.Duration {
	return time.Duration(c-o) * time.Second
}

// String renders the clock as "HH:MM AM/PM".
func (c Clock) String() string {
	h := c.Hour() % 24
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, c.Minute(), period)
}

// HMS renders the clock as "HH:MM:SS", the form stored in DELAY codes.
func (c Clock) HMS() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

// MarshalText lets clocks travel through JSON and YAML in the exchange format.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

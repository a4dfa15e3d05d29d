package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	SecondsPerMinute = 60
	SecondsPerHour   = 60 * SecondsPerMinute

	// MaxDuration is the largest value expressible as HH:MM:SS.
	MaxDuration Duration = 99*SecondsPerHour + 59*SecondsPerMinute + 59

	DurationLayout = "HH:MM:SS"
	DateTimeLayout = "2006-01-02 15:04:05"
	ClockLayout    = "15:04:05"
)

var hmsPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})$`)

// Duration is a whole number of seconds.
type Duration int64

// FromSeconds converts a second count into a Duration.
func FromSeconds(seconds int64) (Duration, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %d", seconds)
	}
	return Duration(seconds), nil
}

// ParseDuration parses "HH:MM:SS" where minutes and seconds are 0-59.
func ParseDuration(text string) (Duration, error) {
	h, m, s, err := splitHMS(text)
	if err != nil {
		return 0, err
	}
	return Duration(h*SecondsPerHour + m*SecondsPerMinute + s), nil
}

// FormatDuration renders d as zero-padded "HH:MM:SS".
func FormatDuration(d Duration) string {
	secs := int64(d)
	return fmt.Sprintf("%02d:%02d:%02d", secs/SecondsPerHour, (secs%SecondsPerHour)/SecondsPerMinute, secs%SecondsPerMinute)
}

func (d Duration) Seconds() int64 {
	return int64(d)
}

// Std converts d into a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d) * time.Second
}

func (d Duration) String() string {
	return FormatDuration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(FormatDuration(d)), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseClock parses a "HH:MM:SS" time of day and places it on the calendar
// day of ref, in ref's location.
func ParseClock(text string, ref time.Time) (time.Time, error) {
	h, m, s, err := splitHMS(text)
	if err != nil {
		return time.Time{}, err
	}
	if h > 23 {
		return time.Time{}, &FormatError{Value: text, Layout: ClockLayout, Reason: "hour must be 00-23"}
	}
	y, mo, d := ref.Date()
	return time.Date(y, mo, d, int(h), int(m), int(s), 0, ref.Location()), nil
}

// ParseInstant accepts either "YYYY-MM-DD HH:MM:SS" or a bare "HH:MM:SS",
// the latter resolving to the current day. There is no rollover past midnight.
func ParseInstant(text string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation(DateTimeLayout, text, now.Location()); err == nil {
		return t, nil
	}
	if hmsPattern.MatchString(text) {
		return ParseClock(text, now)
	}
	return time.Time{}, &FormatError{Value: text, Layout: DateTimeLayout + " or " + DurationLayout}
}

func splitHMS(text string) (h, m, s int64, err error) {
	parts := hmsPattern.FindStringSubmatch(text)
	if parts == nil {
		return 0, 0, 0, &FormatError{Value: text, Layout: DurationLayout}
	}
	h, _ = strconv.ParseInt(parts[1], 10, 64)
	m, _ = strconv.ParseInt(parts[2], 10, 64)
	s, _ = strconv.ParseInt(parts[3], 10, 64)
	if m > 59 || s > 59 {
		return 0, 0, 0, &FormatError{Value: text, Layout: DurationLayout, Reason: "minutes and seconds must be 00-59"}
	}
	return h, m, s, nil
}

package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  Duration
	}{
		{"00:00:00", 0},
		{"00:00:20", 20},
		{"00:10:20", 620},
		{"01:00:00", 3600},
		{"99:59:59", MaxDuration},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestParseDurationRejectsMalformedText(t *testing.T) {
	for _, input := range []string{"", "1:00:00", "00:60:00", "00:00:60", "00-00-10", "aa:bb:cc", "00:00:10 ", "100:00:00"} {
		_, err := ParseDuration(input)
		var formatErr *FormatError
		assert.True(t, errors.As(err, &formatErr), "expected FormatError for %q, got %v", input, err)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:05", FormatDuration(5))
	assert.Equal(t, "01:01:01", FormatDuration(3661))
	assert.Equal(t, "99:59:59", FormatDuration(MaxDuration))
}

func TestDurationRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := Duration(rapid.Int64Range(0, int64(MaxDuration)).Draw(rt, "seconds"))
		parsed, err := ParseDuration(FormatDuration(d))
		if err != nil {
			rt.Fatalf("parse %s: %v", FormatDuration(d), err)
		}
		if parsed != d {
			rt.Fatalf("round trip of %d gave %d", d, parsed)
		}
	})
}

func TestFromSeconds(t *testing.T) {
	d, err := FromSeconds(90)
	require.NoError(t, err)
	assert.Equal(t, int64(90), d.Seconds())
	assert.Equal(t, 90*time.Second, d.Std())

	_, err = FromSeconds(-1)
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	text, err := Duration(620).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "00:10:20", string(text))

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("00:00:45")))
	assert.Equal(t, Duration(45), d)
	assert.Error(t, d.UnmarshalText([]byte("45")))
}

func TestParseClock(t *testing.T) {
	ref := time.Date(2024, 5, 17, 8, 30, 0, 0, time.Local)

	got, err := ParseClock("21:15:00", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 17, 21, 15, 0, 0, time.Local), got)

	_, err = ParseClock("25:00:00", ref)
	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestParseInstant(t *testing.T) {
	now := time.Date(2024, 5, 17, 8, 30, 0, 0, time.Local)

	full, err := ParseInstant("2024-06-01 05:00:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 5, 0, 0, 0, time.Local), full)

	clock, err := ParseInstant("06:00:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 17, 6, 0, 0, 0, time.Local), clock, "time of day resolves to today without rollover")

	_, err = ParseInstant("tomorrow", now)
	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
}

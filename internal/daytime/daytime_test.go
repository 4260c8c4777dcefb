package daytime_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/daytime/internal/daytime"
)

var linePattern = regexp.MustCompile(`^(Mon|Tue|Wed|Thu|Fri|Sat|Sun) (Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) [ 1-3][0-9] \d{2}:\d{2}:\d{2} \S+ \d{4}\n$`)

func TestFormat(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)

	tests := []struct {
		name   string
		input  time.Time
		expOut string
		expErr error
	}{
		{
			name:   "should pad single digit days with a space",
			input:  time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
			expOut: "Wed Jan  1 00:00:00 UTC 2020",
		},
		{
			name:   "should not pad two digit days",
			input:  time.Date(2021, time.December, 24, 23, 59, 58, 999, time.UTC),
			expOut: "Fri Dec 24 23:59:58 UTC 2021",
		},
		{
			name:   "should render the zone abbreviation of the time",
			input:  time.Date(2024, time.February, 29, 13, 4, 5, 0, est),
			expOut: "Thu Feb 29 13:04:05 EST 2024",
		},
		{
			name:   "should reject years that do not fit the template",
			input:  time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC),
			expErr: daytime.ErrYearOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// when
			out, err := daytime.Format(tt.input)

			// then
			if tt.expErr != nil {
				assert.ErrorIs(t, err, tt.expErr)
				assert.Empty(t, out)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expOut, out)
		})
	}
}

func TestLine(t *testing.T) {
	t.Run("should terminate the time string with a newline", func(t *testing.T) {
		// when
		line, err := daytime.Line(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))

		// then
		require.NoError(t, err)
		assert.Equal(t, "Wed Jan  1 00:00:00 UTC 2020\n", line)
	})

	t.Run("should match the protocol pattern for the system clock", func(t *testing.T) {
		// when
		line, err := daytime.Line(daytime.SystemClock{}.Now())

		// then
		require.NoError(t, err)
		assert.Regexp(t, linePattern, line)
	})
}

func TestMode(t *testing.T) {
	assert.True(t, daytime.ModeNetwork.Valid())
	assert.True(t, daytime.ModeConsole.Valid())
	assert.False(t, daytime.Mode("").Valid())
	assert.False(t, daytime.Mode("udp").Valid())
}

func TestClockFunc(t *testing.T) {
	// given
	fixed := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	clock := daytime.ClockFunc(func() time.Time { return fixed })

	// when
	now := clock.Now()

	// then
	assert.Equal(t, fixed, now)
}

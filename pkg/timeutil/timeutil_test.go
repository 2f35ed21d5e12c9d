package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var almaty = time.FixedZone("Asia/Almaty", 5*60*60)

func TestPeriodStart_Daily(t *testing.T) {
	now := time.Date(2025, 3, 14, 17, 42, 9, 123, almaty)
	start := PeriodStart(now, PeriodDaily, DefaultWeekStart)

	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, almaty), start)
	assert.Equal(t, almaty, start.Location())
}

func TestPeriodStart_Weekly(t *testing.T) {
	// 2025-03-14 is a Friday.
	friday := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	sunday := PeriodStart(friday, PeriodWeekly, time.Sunday)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), sunday)

	monday := PeriodStart(friday, PeriodWeekly, time.Monday)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), monday)

	// On the week-start day itself the window starts that same midnight.
	onStart := time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		PeriodStart(onStart, PeriodWeekly, time.Sunday))
}

func TestPeriodStart_Monthly(t *testing.T) {
	now := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		PeriodStart(now, PeriodMonthly, DefaultWeekStart))
}

func TestNextPeriodStart(t *testing.T) {
	day := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), NextPeriodStart(day, PeriodDaily))

	week := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), NextPeriodStart(week, PeriodWeekly))

	month := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), NextPeriodStart(month, PeriodMonthly))
}

func TestSameBucket(t *testing.T) {
	morning := time.Date(2025, 3, 14, 0, 0, 1, 0, time.UTC)
	night := time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameBucket(morning, night, PeriodDaily, DefaultWeekStart))
	assert.False(t, SameBucket(night, nextDay, PeriodDaily, DefaultWeekStart))

	// The two days straddle no week boundary with a Sunday start.
	assert.True(t, SameBucket(night, nextDay, PeriodWeekly, time.Sunday))
	assert.True(t, SameBucket(night, nextDay, PeriodMonthly, DefaultWeekStart))
}

func TestParsePeriod(t *testing.T) {
	for _, p := range AllPeriods {
		parsed, err := ParsePeriod(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePeriod("hourly")
	assert.Error(t, err)
}

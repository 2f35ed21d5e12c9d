package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPRequiredForLevel(t *testing.T) {
	assert.Equal(t, 0, XPRequiredForLevel(0))
	assert.Equal(t, 0, XPRequiredForLevel(1))
	assert.Equal(t, 500, XPRequiredForLevel(2))
	assert.Equal(t, 600, XPRequiredForLevel(3))
	assert.Equal(t, 700, XPRequiredForLevel(4))
	assert.Equal(t, 500+98*100, XPRequiredForLevel(100))
}

func TestTotalXPForLevel(t *testing.T) {
	assert.Equal(t, 0, TotalXPForLevel(1))
	assert.Equal(t, 500, TotalXPForLevel(2))
	assert.Equal(t, 1100, TotalXPForLevel(3))
	assert.Equal(t, 1800, TotalXPForLevel(4))

	// Strictly increasing from level 2 upward.
	for level := 2; level <= 100; level++ {
		assert.Greater(t, TotalXPForLevel(level), TotalXPForLevel(level-1),
			"cumulative cost must grow at level %d", level)
	}
}

func TestLevelFromTotalXP_Boundaries(t *testing.T) {
	p := LevelFromTotalXP(499)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 499, p.CurrentLevelXP)
	assert.Equal(t, 500, p.TotalXPForNextLevel)

	p = LevelFromTotalXP(500)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 0, p.CurrentLevelXP)
	assert.Equal(t, 600, p.TotalXPForNextLevel)
}

func TestLevelFromTotalXP_DegradesToZero(t *testing.T) {
	p := LevelFromTotalXP(-50)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.CurrentLevelXP)
	assert.Equal(t, 500, p.TotalXPForNextLevel)
}

func TestLevelCurve_RoundTrip(t *testing.T) {
	for level := 1; level <= 100; level++ {
		p := LevelFromTotalXP(TotalXPForLevel(level))
		assert.Equal(t, level, p.Level, "round-trip failed at level %d", level)
		assert.Equal(t, 0, p.CurrentLevelXP, "level %d boundary should start at 0 XP within level", level)
	}
}

func TestLevelProgress_Derived(t *testing.T) {
	// 800 total XP: level 2 with 300/600 into level 3.
	p := LevelFromTotalXP(800)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 300, p.CurrentLevelXP)
	assert.Equal(t, 300, p.XPToNextLevel())
	assert.Equal(t, 50, p.ProgressPercent())
}

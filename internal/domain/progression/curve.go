// Package progression implements the XP ledger: the level curve, the
// per-action award policy, and the award transaction against the user
// profile store.
package progression

import "math"

// Level curve parameters. Level 2 costs BaseLevelXP to reach from level 1;
// every level after that costs CurveGrowthRate of the base more than a flat
// base, increasing linearly (not compounding): level 3 costs 600, level 4
// costs 700, and so on.
const (
	BaseLevelXP     = 500
	CurveGrowthRate = 0.2
)

// LevelProgress describes where a total XP amount lands on the curve.
type LevelProgress struct {
	// Level is the level reached with this total XP.
	Level int

	// CurrentLevelXP is the XP earned within the current level.
	CurrentLevelXP int

	// TotalXPForNextLevel is the marginal XP cost of the next level.
	TotalXPForNextLevel int
}

// XPToNextLevel returns the remaining XP needed to reach the next level.
func (p LevelProgress) XPToNextLevel() int {
	return p.TotalXPForNextLevel - p.CurrentLevelXP
}

// ProgressPercent returns progress through the current level as 0-100,
// rounded down.
func (p LevelProgress) ProgressPercent() int {
	if p.TotalXPForNextLevel == 0 {
		return 100
	}
	return (p.CurrentLevelXP * 100) / p.TotalXPForNextLevel
}

// XPRequiredForLevel returns the marginal XP cost of going from level-1 to
// level. Level 1 is the starting level and costs nothing.
func XPRequiredForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return int(math.Round(BaseLevelXP * (1 + float64(level-2)*CurveGrowthRate)))
}

// TotalXPForLevel returns the cumulative XP required to reach targetLevel
// from level 1.
func TotalXPForLevel(targetLevel int) int {
	if targetLevel <= 1 {
		return 0
	}
	total := 0
	for level := 2; level <= targetLevel; level++ {
		total += XPRequiredForLevel(level)
	}
	return total
}

// LevelFromTotalXP maps a lifetime XP total back onto the curve. Negative
// input is treated as 0. The walk accumulates marginal costs until the next
// level's cumulative requirement would exceed totalXP, so the round-trip
// LevelFromTotalXP(TotalXPForLevel(L)).Level == L holds exactly.
func LevelFromTotalXP(totalXP int) LevelProgress {
	if totalXP < 0 {
		totalXP = 0
	}
	if totalXP < BaseLevelXP {
		return LevelProgress{
			Level:               1,
			CurrentLevelXP:      totalXP,
			TotalXPForNextLevel: BaseLevelXP,
		}
	}

	level := 1
	accumulated := 0
	for {
		next := XPRequiredForLevel(level + 1)
		if accumulated+next > totalXP {
			return LevelProgress{
				Level:               level,
				CurrentLevelXP:      totalXP - accumulated,
				TotalXPForNextLevel: next,
			}
		}
		accumulated += next
		level++
	}
}

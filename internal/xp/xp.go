// Package xp holds the gamification math: the level curve and per-turn
// awards. Milestone XP itself is decided by the milestone engine's caller.
package xp

// LevelInfo describes where a total XP amount sits on the level curve.
type LevelInfo struct {
	Level          int `json:"level"`
	CurrentLevelXP int `json:"currentLevelXP"`
	XPForNextLevel int `json:"xpForNextLevel"`
	CumulativeXP   int `json:"cumulativeXP"`
}

// LevelForXP computes the level for a total XP amount. Level 1 spans 0-99;
// each following level requires 50 more XP than the previous (100, 150,
// 200, ...).
func LevelForXP(totalXP int) LevelInfo {
	level := 1
	required := 100
	cumulative := 0

	for totalXP >= cumulative+required {
		cumulative += required
		level++
		required += 50
	}

	return LevelInfo{
		Level:          level,
		CurrentLevelXP: totalXP - cumulative,
		XPForNextLevel: required,
		CumulativeXP:   cumulative,
	}
}

// TurnAward returns the XP granted for a student turn, scaled by how much
// the student wrote. Empty messages earn nothing.
func TurnAward(messageLen int) int {
	switch {
	case messageLen <= 0:
		return 0
	case messageLen < 20:
		return 6
	case messageLen < 50:
		return 7
	case messageLen < 100:
		return 8
	case messageLen < 200:
		return 9
	default:
		return 10
	}
}

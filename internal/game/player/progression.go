package player

const (
	// MaxLevel caps advancement.
	MaxLevel = 50
	// xpPerLevelUnit scales the per-level requirement.
	xpPerLevelUnit = 100
	// baseMaxHp is the level 1 hit point maximum.
	baseMaxHp = 10
	// maxHpPerLevel is the hit point gain per level.
	maxHpPerLevel = 5
)

// XpForLevel is the experience needed to advance from level n to n+1.
func XpForLevel(n int) int {
	return xpPerLevelUnit * n
}

// TotalXpForLevel is the lifetime experience threshold at which a player
// holds level n. Level 1 is the floor.
func TotalXpForLevel(n int) int {
	total := 0
	for lvl := 1; lvl < n; lvl++ {
		total += XpForLevel(lvl)
	}
	return total
}

// LevelForTotalXp maps lifetime experience to the level it grants,
// capped at MaxLevel.
func LevelForTotalXp(total int) int {
	lvl := 1
	for lvl < MaxLevel && total >= TotalXpForLevel(lvl+1) {
		lvl++
	}
	return lvl
}

// BaseMaxHpForLevel is the equipment-free hit point maximum at a level.
func BaseMaxHpForLevel(n int) int {
	return baseMaxHp + maxHpPerLevel*(n-1)
}

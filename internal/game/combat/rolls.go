package combat

import "github.com/driftwood-mud/engine/internal/game/dice"

// PlayerSwingDamage rolls a player's swing: uniform base roll plus the
// equipped weapon bonus, reduced by the mob's defense. Every landed swing
// deals at least 1 so fights always make progress.
func PlayerSwingDamage(src dice.Source, cfg Config, weaponBonus, mobDefense int) int {
	return clampSwing(dice.Between(src, cfg.MinDamage, cfg.MaxDamage) + weaponBonus - mobDefense)
}

// MobSwingDamage rolls a mob's counter-swing: uniform base roll plus the
// mob's damage bonus, reduced by the player's cached defense.
func MobSwingDamage(src dice.Source, cfg Config, mobDamage, playerDefense int) int {
	return clampSwing(dice.Between(src, cfg.MinDamage, cfg.MaxDamage) + mobDamage - playerDefense)
}

// FleeSucceeds rolls a flee attempt.
func FleeSucceeds(src dice.Source, cfg Config) bool {
	return dice.Chance(src, cfg.FleeChance)
}

func clampSwing(damage int) int {
	if damage < 1 {
		return 1
	}
	return damage
}

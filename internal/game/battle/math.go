package battle

// 攻防交换的纯计算。除显式传入的随机源外没有任何隐藏状态，
// 每次交换固定消耗两次掷骰，与闪避/暴击/特殊攻击无关，
// 保证同一种子下的掷骰序列不随分支漂移。

// ResolveExchange 结算一次攻防交换
func ResolveExchange(cfg *Config, attacker, defender *Snapshot, action ActionKind, rng RandomSource) ExchangeResult {
	attackRoll := rng.Roll(cfg.DieFaces)
	defenseRoll := rng.Roll(cfg.DieFaces)

	result := ExchangeResult{
		AttackRoll:  attackRoll,
		DefenseRoll: defenseRoll,
	}

	// 闪避：防守掷骰超过攻击掷骰加敏捷差修正则完全闪避
	if IsDodged(cfg, attackRoll, defenseRoll, attacker.Agility, defender.Agility) {
		result.Dodged = true
		return result
	}

	critical := attackRoll >= cfg.CritThreshold
	result.Critical = critical
	result.Damage = ComputeDamage(cfg, attacker, defender, attackRoll, critical, action)

	return result
}

// IsDodged 判定闪避
// 仅由（攻击掷骰，防守掷骰，攻方敏捷，防方敏捷）决定，无隐藏状态。
func IsDodged(cfg *Config, attackRoll, defenseRoll, attackerAgility, defenderAgility int) bool {
	threshold := attackRoll + (attackerAgility-defenderAgility)/cfg.DodgeDivisor
	return defenseRoll > threshold
}

// ComputeDamage 计算命中伤害
// 基础伤害随攻击、毒性和掷骰单调上升，被韧性与技巧减免，
// 暴击在减免前放大基础值，特殊攻击按比例加成最终值；
// 结果为整数且不低于最低伤害。
func ComputeDamage(cfg *Config, attacker, defender *Snapshot, attackRoll int, critical bool, action ActionKind) int {
	base := (3*attacker.Offense + attacker.Toxicity + 2*attackRoll) / 5
	if critical {
		base = base * cfg.CritMultiplier / 100
	}

	reduction := (2*defender.Resilience + defender.Craft) / 6

	damage := base - reduction
	if action == ActionSpecial {
		damage += damage * cfg.SpecialBonus / 100
	}

	if damage < cfg.MinDamage {
		damage = cfg.MinDamage
	}
	return damage
}

package battle

// Simulate 运行一场完整战斗
// 纯CPU计算，无I/O，一次调用跑到终局；外部看不到任何中间状态。
// 发起方在奇数回合行动，双方交替；每方第N次行动使用特殊攻击。
// 终止条件：一方血量归零，或达到回合上限后按剩余血量比例判定，
// 比例持平比战力，战力持平判发起方胜。
func Simulate(cfg *Config, proposer, accepter *Snapshot, rng RandomSource) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateSnapshot(proposer); err != nil {
		return nil, err
	}
	if err := ValidateSnapshot(accepter); err != nil {
		return nil, err
	}

	proposerMaxHP := cfg.MaxHP(proposer.Vitality)
	accepterMaxHP := cfg.MaxHP(accepter.Vitality)

	result := &Result{
		Turns:           make([]Turn, 0, cfg.MaxTurns),
		ProposerMaxHP:   proposerMaxHP,
		AccepterMaxHP:   accepterMaxHP,
		ProposerFinalHP: proposerMaxHP,
		AccepterFinalHP: accepterMaxHP,
	}

	proposerActions := 0
	accepterActions := 0

	for index := 1; index <= cfg.MaxTurns; index++ {
		var (
			side               Side
			attacker, defender *Snapshot
			defenderHP         *int
			actions            *int
		)

		// 发起方在奇数回合行动
		if index%2 == 1 {
			side = SideProposer
			attacker, defender = proposer, accepter
			defenderHP = &result.AccepterFinalHP
			actions = &proposerActions
		} else {
			side = SideAccepter
			attacker, defender = accepter, proposer
			defenderHP = &result.ProposerFinalHP
			actions = &accepterActions
		}

		*actions++
		action := ActionAttack
		if *actions%cfg.SpecialInterval == 0 {
			action = ActionSpecial
		}

		exchange := ResolveExchange(cfg, attacker, defender, action, rng)

		hpBefore := *defenderHP
		hpAfter := hpBefore - exchange.Damage
		if hpAfter < 0 {
			hpAfter = 0
		}
		*defenderHP = hpAfter

		result.Turns = append(result.Turns, Turn{
			Index:            index,
			Side:             side,
			Action:           action,
			AttackRoll:       exchange.AttackRoll,
			DefenseRoll:      exchange.DefenseRoll,
			Dodged:           exchange.Dodged,
			Critical:         exchange.Critical,
			Damage:           exchange.Damage,
			DefenderHPBefore: hpBefore,
			DefenderHPAfter:  hpAfter,
		})

		// 击倒即终局
		if hpAfter == 0 {
			result.Outcome = OutcomeKnockout
			result.Winner = side
			result.TurnCount = index
			return result, nil
		}
	}

	// 达到回合上限：按剩余血量比例判定，交叉相乘避免浮点
	result.Outcome = OutcomeTurnCap
	result.TurnCount = cfg.MaxTurns
	result.Winner = decideOnTurnCap(
		result.ProposerFinalHP, proposerMaxHP, proposer.PowerScore(),
		result.AccepterFinalHP, accepterMaxHP, accepter.PowerScore(),
	)
	return result, nil
}

// decideOnTurnCap 回合上限时的判定：血量比例 > 战力 > 发起方
func decideOnTurnCap(proposerHP, proposerMaxHP, proposerPower, accepterHP, accepterMaxHP, accepterPower int) Side {
	proposerRatio := proposerHP * accepterMaxHP
	accepterRatio := accepterHP * proposerMaxHP

	switch {
	case proposerRatio > accepterRatio:
		return SideProposer
	case accepterRatio > proposerRatio:
		return SideAccepter
	case proposerPower > accepterPower:
		return SideProposer
	case accepterPower > proposerPower:
		return SideAccepter
	default:
		// 完全持平判发起方胜
		return SideProposer
	}
}

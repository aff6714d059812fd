package battle

// Side 行动方
type Side string

const (
	SideProposer Side = "proposer" // 发起方
	SideAccepter Side = "accepter" // 接受方
)

// ActionKind 行动类型
type ActionKind string

const (
	ActionAttack  ActionKind = "attack"  // 普通攻击
	ActionSpecial ActionKind = "special" // 特殊攻击
)

// Outcome 战斗结局类型
type Outcome string

const (
	OutcomeKnockout Outcome = "knockout" // 一方血量归零
	OutcomeTurnCap  Outcome = "turn_cap" // 达到回合上限，按剩余血量比例判定
)

// Snapshot 参战蜘蛛快照
// 在接受挑战时冻结，战斗过程只读，归属变更由结算事务完成。
type Snapshot struct {
	SpiderID   uint   `json:"spider_id"`
	OwnerID    uint   `json:"owner_id"`
	Name       string `json:"name"`
	Vitality   int    `json:"vitality"`
	Offense    int    `json:"offense"`
	Agility    int    `json:"agility"`
	Resilience int    `json:"resilience"`
	Toxicity   int    `json:"toxicity"`
	Craft      int    `json:"craft"`
}

// PowerScore 综合战力（六项属性之和）
func (s *Snapshot) PowerScore() int {
	return s.Vitality + s.Offense + s.Agility + s.Resilience + s.Toxicity + s.Craft
}

// Turn 单个回合记录（只追加，不修改）
type Turn struct {
	Index            int        `json:"index"` // 1起始，严格递增且连续
	Side             Side       `json:"side"`
	Action           ActionKind `json:"action"`
	AttackRoll       int        `json:"attack_roll"`
	DefenseRoll      int        `json:"defense_roll"`
	Dodged           bool       `json:"dodged"`
	Critical         bool       `json:"critical"`
	Damage           int        `json:"damage"` // 被闪避时为0
	DefenderHPBefore int        `json:"defender_hp_before"`
	DefenderHPAfter  int        `json:"defender_hp_after"`
}

// Result 战斗最终结果
// 胜负判定是全定序的：击倒 > 血量比例 > 战力 > 发起方，永远产出唯一胜者。
type Result struct {
	Turns           []Turn  `json:"turns"`
	Outcome         Outcome `json:"outcome"`
	Winner          Side    `json:"winner"`
	TurnCount       int     `json:"turn_count"`
	ProposerMaxHP   int     `json:"proposer_max_hp"`
	AccepterMaxHP   int     `json:"accepter_max_hp"`
	ProposerFinalHP int     `json:"proposer_final_hp"`
	AccepterFinalHP int     `json:"accepter_final_hp"`
}

// WinnerSnapshot 返回胜方快照
func (r *Result) WinnerSnapshot(proposer, accepter *Snapshot) *Snapshot {
	if r.Winner == SideProposer {
		return proposer
	}
	return accepter
}

// LoserSnapshot 返回负方快照
func (r *Result) LoserSnapshot(proposer, accepter *Snapshot) *Snapshot {
	if r.Winner == SideProposer {
		return accepter
	}
	return proposer
}

// ExchangeResult 单次攻防交换的计算结果
type ExchangeResult struct {
	AttackRoll  int
	DefenseRoll int
	Dodged      bool
	Critical    bool
	Damage      int
}

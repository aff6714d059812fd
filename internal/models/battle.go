package models

import "time"

// 战斗结局
const (
	BattleOutcomeKnockout = "knockout" // 一方血量归零
	BattleOutcomeTurnCap  = "turn_cap" // 达到回合上限，按剩余血量比例判定
)

// 行动类型
const (
	ActionKindAttack  = "attack"  // 普通攻击
	ActionKindSpecial = "special" // 特殊攻击
)

// 行动方
const (
	SideProposer = "proposer" // 发起方
	SideAccepter = "accepter" // 接受方
)

// Battle 战斗记录表
// 快照与种子一起落库，使任何一场战斗都可以完整复盘。
type Battle struct {
	BaseModel
	BattleID         string     `gorm:"uniqueIndex;size:36;not null" json:"battle_id"`
	ChallengeID      uint       `gorm:"uniqueIndex;not null" json:"challenge_id"`
	Seed             string     `gorm:"size:64;not null" json:"seed"`
	ProposerSnapshot JSONMap    `gorm:"type:json" json:"proposer_snapshot"` // 接受时刻的蜘蛛快照
	AccepterSnapshot JSONMap    `gorm:"type:json" json:"accepter_snapshot"`
	Outcome          string     `gorm:"size:20;not null" json:"outcome"` // knockout, turn_cap
	WinnerUserID     *uint      `json:"winner_user_id,omitempty"`
	WinnerSpiderID   *uint      `json:"winner_spider_id,omitempty"`
	LoserUserID      *uint      `json:"loser_user_id,omitempty"`
	LoserSpiderID    *uint      `json:"loser_spider_id,omitempty"`
	TurnCount        int        `gorm:"not null" json:"turn_count"`
	ProposerFinalHP  int        `gorm:"not null" json:"proposer_final_hp"`
	AccepterFinalHP  int        `gorm:"not null" json:"accepter_final_hp"`
	Revealed         bool       `gorm:"default:false" json:"revealed"`
	RevealedAt       *time.Time `json:"revealed_at,omitempty"`

	// 关联
	Turns []BattleTurn `gorm:"foreignKey:BattleID;references:BattleID" json:"turns,omitempty"`
}

// BattleTurn 战斗回合表（只追加，不修改）
type BattleTurn struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	BattleID         string `gorm:"index;size:36;not null" json:"battle_id"`
	TurnIndex        int    `gorm:"not null" json:"turn_index"` // 1起始，严格递增
	Side             string `gorm:"size:10;not null" json:"side"`
	ActionKind       string `gorm:"size:10;not null" json:"action_kind"`
	AttackRoll       int    `gorm:"not null" json:"attack_roll"`
	DefenseRoll      int    `gorm:"not null" json:"defense_roll"`
	Dodged           bool   `gorm:"default:false" json:"dodged"`
	Critical         bool   `gorm:"default:false" json:"critical"`
	Damage           int    `gorm:"not null" json:"damage"` // 被闪避时为0
	DefenderHPBefore int    `gorm:"not null" json:"defender_hp_before"`
	DefenderHPAfter  int    `gorm:"not null" json:"defender_hp_after"`
}

// TableName 指定Battle表名
func (Battle) TableName() string {
	return "battles"
}

// TableName 指定BattleTurn表名
func (BattleTurn) TableName() string {
	return "battle_turns"
}

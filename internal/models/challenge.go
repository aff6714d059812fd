package models

import "time"

// 挑战状态
const (
	ChallengeStatusOpen      = "open"      // 已发起，等待接受
	ChallengeStatusAccepted  = "accepted"  // 已接受，等待结算
	ChallengeStatusResolved  = "resolved"  // 已结算（终态）
	ChallengeStatusCancelled = "cancelled" // 已取消（终态）
	ChallengeStatusExpired   = "expired"   // 已过期（终态）
)

// Challenge 挑战表
// 状态转换只能通过条件更新（乐观并发）推进，见 repository.ChallengeRepository。
type Challenge struct {
	BaseModel
	ProposerID       uint       `gorm:"index;not null" json:"proposer_id"`
	ProposerSpiderID uint       `gorm:"index;not null" json:"proposer_spider_id"`
	TargetID         *uint      `gorm:"index" json:"target_id,omitempty"`        // 为空表示公开挑战
	TargetSpiderID   *uint      `json:"target_spider_id,omitempty"`              // 指定挑战时可约定对方蜘蛛
	AccepterID       *uint      `gorm:"index" json:"accepter_id,omitempty"`      // 接受时绑定
	AccepterSpiderID *uint      `json:"accepter_spider_id,omitempty"`            // 接受时绑定
	Message          string     `gorm:"size:500" json:"message"`
	Status           string     `gorm:"index;size:20;default:'open'" json:"status"`
	Seed             string     `gorm:"size:64" json:"seed"`                     // 接受时生成，复盘用
	BattleID         *string    `gorm:"size:36;index" json:"battle_id,omitempty"` // 结算后指向战斗记录
	WinnerID         *uint      `json:"winner_id,omitempty"`
	LoserID          *uint      `json:"loser_id,omitempty"`
	ExpiresAt        time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// TableName 指定Challenge表名
func (Challenge) TableName() string {
	return "challenges"
}

// IsOpen 检查挑战是否处于开放状态
func (c *Challenge) IsOpen() bool {
	return c.Status == ChallengeStatusOpen
}

// IsTerminal 检查挑战是否已进入终态
func (c *Challenge) IsTerminal() bool {
	switch c.Status {
	case ChallengeStatusResolved, ChallengeStatusCancelled, ChallengeStatusExpired:
		return true
	default:
		return false
	}
}

// IsExpired 检查挑战是否已过有效期
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsTargeted 检查是否为指定对象的挑战
func (c *Challenge) IsTargeted() bool {
	return c.TargetID != nil
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to string) bool {
	switch from {
	case ChallengeStatusOpen:
		return to == ChallengeStatusAccepted ||
			to == ChallengeStatusCancelled ||
			to == ChallengeStatusExpired
	case ChallengeStatusAccepted:
		return to == ChallengeStatusResolved
	default:
		return false
	}
}

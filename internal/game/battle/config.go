package battle

import "errors"

var (
	ErrInvalidConfig = errors.New("无效的战斗配置")
	ErrInvalidStats  = errors.New("无效的属性值")
)

// Config 战斗数值配置
// 所有常量都是可调参数而非固定契约；调整任何一项都会改变既有种子的复盘结果。
type Config struct {
	DieFaces         int // 骰面数
	CritThreshold    int // 暴击阈值（掷出≥该值触发）
	CritMultiplier   int // 暴击倍率（百分比，200 = 2倍）
	DodgeDivisor     int // 敏捷差除数
	MinDamage        int // 命中时的最低伤害
	SpecialInterval  int // 每方第N次行动使用特殊攻击
	SpecialBonus     int // 特殊攻击伤害加成（百分比）
	MaxTurns         int // 回合数硬上限
	BaseHP           int // 血量基数
	VitalityHPFactor int // 体力对血量的系数
}

// DefaultConfig 默认战斗配置
func DefaultConfig() *Config {
	return &Config{
		DieFaces:         20,
		CritThreshold:    20,
		CritMultiplier:   200,
		DodgeDivisor:     4,
		MinDamage:        1,
		SpecialInterval:  3,
		SpecialBonus:     50,
		MaxTurns:         50,
		BaseHP:           20,
		VitalityHPFactor: 2,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.DieFaces < 2 {
		return ErrInvalidConfig
	}
	if c.CritThreshold < 1 || c.CritThreshold > c.DieFaces {
		return ErrInvalidConfig
	}
	if c.CritMultiplier < 100 {
		return ErrInvalidConfig
	}
	if c.DodgeDivisor < 1 {
		return ErrInvalidConfig
	}
	if c.MinDamage < 1 {
		return ErrInvalidConfig
	}
	if c.SpecialInterval < 1 {
		return ErrInvalidConfig
	}
	if c.SpecialBonus < 0 {
		return ErrInvalidConfig
	}
	if c.MaxTurns < 1 {
		return ErrInvalidConfig
	}
	if c.BaseHP < 1 || c.VitalityHPFactor < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// MaxHP 计算血量上限
func (c *Config) MaxHP(vitality int) int {
	return c.BaseHP + c.VitalityHPFactor*vitality
}

// ValidateSnapshot 校验参战快照
// 六项属性必须全部为正，保证血量为正且伤害公式单调。
func ValidateSnapshot(s *Snapshot) error {
	if s == nil {
		return ErrInvalidStats
	}
	if s.Vitality <= 0 || s.Offense <= 0 || s.Agility <= 0 ||
		s.Resilience <= 0 || s.Toxicity <= 0 || s.Craft <= 0 {
		return ErrInvalidStats
	}
	return nil
}

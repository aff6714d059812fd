package models

// Spider 蜘蛛角色表
// 六项属性由上传识别流程生成；战斗只读取接受挑战时的快照，
// 归属变更是结算事务的副作用。
type Spider struct {
	BaseModel
	OwnerID    uint    `gorm:"index;not null" json:"owner_id"`
	Name       string  `gorm:"size:100;not null" json:"name"`
	Species    string  `gorm:"size:100" json:"species"`
	ImageURL   string  `gorm:"size:255" json:"image_url"`
	Vitality   int     `gorm:"not null" json:"vitality"`   // 体力（决定血量）
	Offense    int     `gorm:"not null" json:"offense"`    // 攻击
	Agility    int     `gorm:"not null" json:"agility"`    // 敏捷（决定闪避）
	Resilience int     `gorm:"not null" json:"resilience"` // 韧性（减伤）
	Toxicity   int     `gorm:"not null" json:"toxicity"`   // 毒性（附加伤害）
	Craft      int     `gorm:"not null" json:"craft"`      // 技巧（减伤）
	Wins       int     `gorm:"default:0" json:"wins"`
	Losses     int     `gorm:"default:0" json:"losses"`
	Extra      JSONMap `gorm:"type:json" json:"extra"`
}

// TableName 指定Spider表名
func (Spider) TableName() string {
	return "spiders"
}

// PowerScore 综合战力（六项属性之和）
func (s *Spider) PowerScore() int {
	return s.Vitality + s.Offense + s.Agility + s.Resilience + s.Toxicity + s.Craft
}

// HasValidStats 检查属性是否全部为正
func (s *Spider) HasValidStats() bool {
	return s.Vitality > 0 && s.Offense > 0 && s.Agility > 0 &&
		s.Resilience > 0 && s.Toxicity > 0 && s.Craft > 0
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户基础信息表
type User struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Nickname    string     `gorm:"size:100" json:"nickname"`
	Email       string     `gorm:"uniqueIndex;size:100" json:"email"`
	Avatar      string     `gorm:"size:255" json:"avatar"`
	Status      string     `gorm:"size:20;default:'active'" json:"status"` // active, frozen, banned
	Wins        int        `gorm:"default:0" json:"wins"`
	Losses      int        `gorm:"default:0" json:"losses"`
	Draws       int        `gorm:"default:0" json:"draws"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP string     `gorm:"size:50" json:"last_login_ip"`

	// 关联（注意：Spider 不直接嵌入，避免循环依赖）
	Auth    UserAuth `gorm:"foreignKey:UserID" json:"-"`
	Spiders []Spider `gorm:"foreignKey:OwnerID" json:"-"`
}

// UserAuth 用户认证信息表
type UserAuth struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Password      string     `gorm:"size:255;not null" json:"-"`
	LoginAttempts int        `gorm:"default:0" json:"login_attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName 指定User表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 创建前的钩子
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// 设置默认昵称
	if u.Nickname == "" {
		u.Nickname = u.Username
	}
	// 设置默认状态
	if u.Status == "" {
		u.Status = "active"
	}
	return nil
}

// IsActive 检查用户是否激活
func (u *User) IsActive() bool {
	return u.Status == "active"
}

// CanLogin 检查用户是否可以登录
func (u *User) CanLogin() bool {
	return u.Status == "active"
}

// UpdateLoginInfo 更新登录信息
func (u *User) UpdateLoginInfo(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
}

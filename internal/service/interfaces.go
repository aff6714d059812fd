package service

import (
	"context"
	"time"

	"github.com/wfunc/spider-arena/internal/models"
	"github.com/wfunc/spider-arena/internal/utils"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
}

// SpiderService 蜘蛛服务接口
type SpiderService interface {
	Create(ctx context.Context, req *CreateSpiderRequest) (*models.Spider, error)
	Get(ctx context.Context, spiderID uint) (*models.Spider, error)
	ListByOwner(ctx context.Context, ownerID uint, page, pageSize int) ([]*models.Spider, int64, error)
	Delete(ctx context.Context, spiderID, ownerID uint) error
}

// ChallengeService 挑战服务接口
// 所有状态转换都通过存储层的条件更新完成，竞争败方得到冲突错误。
type ChallengeService interface {
	Propose(ctx context.Context, req *ProposeRequest) (*models.Challenge, error)
	Accept(ctx context.Context, req *AcceptRequest) (*models.Challenge, error)
	Cancel(ctx context.Context, challengeID, userID uint) error
	Get(ctx context.Context, challengeID uint) (*models.Challenge, error)
	ListOpen(ctx context.Context, page, pageSize int) ([]*models.Challenge, int64, error)
	ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*models.Challenge, int64, error)
	ExpireStale(ctx context.Context) (int64, error)
}

// BattleService 战斗服务接口
// ResolveChallenge是幂等的：重复调用返回已落库的结果而不是重复结算。
type BattleService interface {
	ResolveChallenge(ctx context.Context, challengeID uint) (*models.Battle, error)
	GetBattle(ctx context.Context, battleID string) (*models.Battle, error)
	GetRevealFeed(ctx context.Context, battleID string) (*RevealFeed, error)
	MarkRevealed(ctx context.Context, battleID string) error
	ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*models.Battle, int64, error)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=20"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Nickname        string `json:"nickname"`
	IP              string `json:"-"` // 客户端IP，由handler设置
}

// LoginRequest 登录请求
type LoginRequest struct {
	Account  string `json:"account" binding:"required"` // 用户名或邮箱
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
}

// CreateSpiderRequest 创建蜘蛛请求
type CreateSpiderRequest struct {
	OwnerID    uint   `json:"-"`
	Name       string `json:"name" binding:"required,max=100"`
	Species    string `json:"species"`
	ImageURL   string `json:"image_url"`
	Vitality   int    `json:"vitality" binding:"required,min=1"`
	Offense    int    `json:"offense" binding:"required,min=1"`
	Agility    int    `json:"agility" binding:"required,min=1"`
	Resilience int    `json:"resilience" binding:"required,min=1"`
	Toxicity   int    `json:"toxicity" binding:"required,min=1"`
	Craft      int    `json:"craft" binding:"required,min=1"`
}

// ProposeRequest 发起挑战请求
type ProposeRequest struct {
	ProposerID       uint          `json:"-"`
	ProposerSpiderID uint          `json:"proposer_spider_id" binding:"required"`
	TargetID         *uint         `json:"target_id"`        // 为空表示公开挑战
	TargetSpiderID   *uint         `json:"target_spider_id"` // 指定挑战时可约定对方蜘蛛
	Message          string        `json:"message" binding:"max=500"`
	TTL              time.Duration `json:"-"`
}

// AcceptRequest 接受挑战请求
type AcceptRequest struct {
	ChallengeID      uint   `json:"-"`
	AccepterID       uint   `json:"-"`
	AccepterSpiderID uint   `json:"accepter_spider_id" binding:"required"`
	Seed             string `json:"seed"` // 为空时自动生成
}

// RevealFeed 战报回放数据
type RevealFeed struct {
	Battle *models.Battle      `json:"battle"`
	Turns  []models.BattleTurn `json:"turns"`
}

package service

import (
	"context"
	"strings"

	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/models"
	"github.com/wfunc/spider-arena/internal/repository"
	"github.com/wfunc/spider-arena/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// authService 认证服务实现
type authService struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	log *zap.Logger,
) AuthService {
	return &authService{
		db:         db,
		userRepo:   userRepo,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Register 用户注册
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "两次输入的密码不一致")
	}

	// 检查用户是否已存在
	if user, _ := s.userRepo.FindByUsername(ctx, req.Username); user != nil {
		return nil, apperrors.New(apperrors.ErrAlreadyExists, "用户名已存在")
	}
	if user, _ := s.userRepo.FindByEmail(ctx, req.Email); user != nil {
		return nil, apperrors.New(apperrors.ErrAlreadyExists, "邮箱已被使用")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "密码加密失败")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Nickname: req.Nickname,
		Status:   "active",
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx).(repository.UserRepository)
		if err := userRepo.Create(ctx, user); err != nil {
			return err
		}
		return userRepo.CreateAuth(ctx, &models.UserAuth{
			UserID:   user.ID,
			Password: hashedPassword,
		})
	})
	if err != nil {
		s.log.Error("用户注册失败", zap.Error(err), zap.String("username", req.Username))
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	if req.IP != "" {
		_ = s.userRepo.UpdateLastLogin(ctx, user.ID, req.IP)
	}

	s.log.Info("用户注册成功", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return s.buildAuthResponse(user)
}

// Login 用户登录
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var user *models.User
	var err error

	// 用户名或邮箱登录
	if strings.Contains(req.Account, "@") {
		user, err = s.userRepo.FindByEmail(ctx, req.Account)
	} else {
		user, err = s.userRepo.FindByUsername(ctx, req.Account)
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}

	if !user.CanLogin() {
		return nil, apperrors.New(apperrors.ErrPermissionDenied, "账号已被冻结或封禁")
	}

	auth, err := s.userRepo.FindAuthByUserID(ctx, user.ID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}

	valid, err := utils.VerifyPassword(req.Password, auth.Password)
	if err != nil || !valid {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}

	if req.IP != "" {
		_ = s.userRepo.UpdateLastLogin(ctx, user.ID, req.IP)
	}

	s.log.Info("用户登录成功", zap.Uint("user_id", user.ID))
	return s.buildAuthResponse(user)
}

// RefreshToken 刷新访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtManager.RefreshAccessToken(refreshToken, user.Username, user.Email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken 校验访问令牌并返回声明
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}

	// 被冻结或封禁的账号令牌立即失效
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.New(apperrors.ErrPermissionDenied, "账号已被冻结或封禁")
	}

	return claims, nil
}

// buildAuthResponse 签发令牌并组装认证响应
func (s *authService) buildAuthResponse(user *models.User) (*AuthResponse, error) {
	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Email, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "令牌签发失败")
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "令牌签发失败")
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}

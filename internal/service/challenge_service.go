package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/models"
	"github.com/wfunc/spider-arena/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// challengeService 挑战服务实现
type challengeService struct {
	db            *gorm.DB
	challengeRepo repository.ChallengeRepository
	spiderRepo    repository.SpiderRepository
	userRepo      repository.UserRepository
	defaultTTL    time.Duration
	maxTTL        time.Duration
	log           *zap.Logger
}

// NewChallengeService 创建挑战服务
func NewChallengeService(
	db *gorm.DB,
	challengeRepo repository.ChallengeRepository,
	spiderRepo repository.SpiderRepository,
	userRepo repository.UserRepository,
	defaultTTL time.Duration,
	maxTTL time.Duration,
	log *zap.Logger,
) ChallengeService {
	return &challengeService{
		db:            db,
		challengeRepo: challengeRepo,
		spiderRepo:    spiderRepo,
		userRepo:      userRepo,
		defaultTTL:    defaultTTL,
		maxTTL:        maxTTL,
		log:           log,
	}
}

// Propose 发起挑战
func (s *challengeService) Propose(ctx context.Context, req *ProposeRequest) (*models.Challenge, error) {
	spider, err := s.spiderRepo.FindByID(ctx, req.ProposerSpiderID)
	if err != nil {
		return nil, err
	}

	if spider.OwnerID != req.ProposerID {
		return nil, apperrors.Newf(apperrors.ErrSpiderNotOwned,
			"蜘蛛ID: %d, 用户ID: %d", req.ProposerSpiderID, req.ProposerID)
	}

	if !spider.HasValidStats() {
		return nil, apperrors.Newf(apperrors.ErrInvalidStats, "蜘蛛ID: %d", spider.ID)
	}

	// 不能向自己发起挑战
	if req.TargetID != nil && *req.TargetID == req.ProposerID {
		return nil, apperrors.New(apperrors.ErrSelfChallenge)
	}

	// 同一只蜘蛛同时最多只能有一个开放挑战
	has, err := s.challengeRepo.HasOpenForSpider(ctx, req.ProposerSpiderID)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, apperrors.Newf(apperrors.ErrAlreadyExists,
			"蜘蛛ID: %d 已有开放挑战", req.ProposerSpiderID)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	challenge := &models.Challenge{
		ProposerID:       req.ProposerID,
		ProposerSpiderID: req.ProposerSpiderID,
		TargetID:         req.TargetID,
		TargetSpiderID:   req.TargetSpiderID,
		Message:          req.Message,
		Status:           models.ChallengeStatusOpen,
		ExpiresAt:        time.Now().Add(ttl),
	}

	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		s.log.Error("创建挑战失败", zap.Error(err), zap.Uint("proposer_id", req.ProposerID))
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	s.log.Info("挑战已发起",
		zap.Uint("challenge_id", challenge.ID),
		zap.Uint("proposer_id", req.ProposerID),
		zap.Uint("spider_id", req.ProposerSpiderID),
	)
	return challenge, nil
}

// Accept 接受挑战
// 校验全部通过后用一次条件更新完成open->accepted，
// 并发接受的败方得到冲突错误，不产生任何变更。
func (s *challengeService) Accept(ctx context.Context, req *AcceptRequest) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	if !challenge.IsOpen() {
		return nil, apperrors.Newf(apperrors.ErrChallengeConflict,
			"挑战ID: %d, 当前状态: %s", challenge.ID, challenge.Status)
	}

	now := time.Now()
	if challenge.IsExpired(now) {
		return nil, apperrors.Newf(apperrors.ErrChallengeExpired, "挑战ID: %d", challenge.ID)
	}

	// 不能接受自己发起的挑战
	if challenge.ProposerID == req.AccepterID {
		return nil, apperrors.New(apperrors.ErrSelfChallenge)
	}

	// 指定挑战只能由指定对象接受
	if challenge.IsTargeted() && *challenge.TargetID != req.AccepterID {
		return nil, apperrors.Newf(apperrors.ErrTargetMismatch,
			"挑战ID: %d, 用户ID: %d", challenge.ID, req.AccepterID)
	}

	spider, err := s.spiderRepo.FindByID(ctx, req.AccepterSpiderID)
	if err != nil {
		return nil, err
	}
	if spider.OwnerID != req.AccepterID {
		return nil, apperrors.Newf(apperrors.ErrSpiderNotOwned,
			"蜘蛛ID: %d, 用户ID: %d", req.AccepterSpiderID, req.AccepterID)
	}
	if !spider.HasValidStats() {
		return nil, apperrors.Newf(apperrors.ErrInvalidStats, "蜘蛛ID: %d", spider.ID)
	}

	// 指定挑战约定了对方蜘蛛时必须使用该蜘蛛
	if challenge.TargetSpiderID != nil && *challenge.TargetSpiderID != req.AccepterSpiderID {
		return nil, apperrors.Newf(apperrors.ErrTargetMismatch,
			"挑战ID: %d, 约定蜘蛛: %d", challenge.ID, *challenge.TargetSpiderID)
	}

	// 种子在接受时定格，之后任何复盘都使用同一序列
	seed := req.Seed
	if seed == "" {
		seed = uuid.NewString()
	}

	err = s.challengeRepo.Transition(ctx, challenge.ID,
		models.ChallengeStatusOpen, models.ChallengeStatusAccepted,
		map[string]interface{}{
			"accepter_id":        req.AccepterID,
			"accepter_spider_id": req.AccepterSpiderID,
			"seed":               seed,
			"accepted_at":        now,
		})
	if err != nil {
		return nil, err
	}

	s.log.Info("挑战已接受",
		zap.Uint("challenge_id", challenge.ID),
		zap.Uint("accepter_id", req.AccepterID),
		zap.String("seed", seed),
	)

	return s.challengeRepo.FindByID(ctx, challenge.ID)
}

// Cancel 取消挑战（仅发起方，仅开放状态）
func (s *challengeService) Cancel(ctx context.Context, challengeID, userID uint) error {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return err
	}

	if challenge.ProposerID != userID {
		return apperrors.Newf(apperrors.ErrPermissionDenied,
			"挑战ID: %d, 用户ID: %d", challengeID, userID)
	}

	err = s.challengeRepo.Transition(ctx, challengeID,
		models.ChallengeStatusOpen, models.ChallengeStatusCancelled, nil)
	if err != nil {
		return err
	}

	s.log.Info("挑战已取消", zap.Uint("challenge_id", challengeID))
	return nil
}

// Get 查询挑战
func (s *challengeService) Get(ctx context.Context, challengeID uint) (*models.Challenge, error) {
	return s.challengeRepo.FindByID(ctx, challengeID)
}

// ListOpen 列出可接受的挑战（排除已过期）
func (s *challengeService) ListOpen(ctx context.Context, page, pageSize int) ([]*models.Challenge, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	challenges, err := s.challengeRepo.ListOpen(ctx, time.Now(), pagination)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return challenges, pagination.Total, nil
}

// ListByUser 列出用户参与的挑战
func (s *challengeService) ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*models.Challenge, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	challenges, err := s.challengeRepo.ListByUser(ctx, userID, pagination)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return challenges, pagination.Total, nil
}

// ExpireStale 批量过期
func (s *challengeService) ExpireStale(ctx context.Context) (int64, error) {
	count, err := s.challengeRepo.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}
	if count > 0 {
		s.log.Info("过期挑战清理完成", zap.Int64("count", count))
	}
	return count, nil
}

package service

import (
	"context"

	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/models"
	"github.com/wfunc/spider-arena/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// spiderService 蜘蛛服务实现
type spiderService struct {
	db         *gorm.DB
	spiderRepo repository.SpiderRepository
	log        *zap.Logger
}

// NewSpiderService 创建蜘蛛服务
func NewSpiderService(db *gorm.DB, spiderRepo repository.SpiderRepository, log *zap.Logger) SpiderService {
	return &spiderService{
		db:         db,
		spiderRepo: spiderRepo,
		log:        log,
	}
}

// Create 创建蜘蛛
func (s *spiderService) Create(ctx context.Context, req *CreateSpiderRequest) (*models.Spider, error) {
	spider := &models.Spider{
		OwnerID:    req.OwnerID,
		Name:       req.Name,
		Species:    req.Species,
		ImageURL:   req.ImageURL,
		Vitality:   req.Vitality,
		Offense:    req.Offense,
		Agility:    req.Agility,
		Resilience: req.Resilience,
		Toxicity:   req.Toxicity,
		Craft:      req.Craft,
	}

	if !spider.HasValidStats() {
		return nil, apperrors.New(apperrors.ErrInvalidStats, "属性必须全部为正")
	}

	if err := s.spiderRepo.Create(ctx, spider); err != nil {
		s.log.Error("创建蜘蛛失败", zap.Error(err), zap.Uint("owner_id", req.OwnerID))
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	s.log.Info("蜘蛛已创建",
		zap.Uint("spider_id", spider.ID),
		zap.Uint("owner_id", spider.OwnerID),
		zap.Int("power_score", spider.PowerScore()),
	)
	return spider, nil
}

// Get 查询蜘蛛
func (s *spiderService) Get(ctx context.Context, spiderID uint) (*models.Spider, error) {
	return s.spiderRepo.FindByID(ctx, spiderID)
}

// ListByOwner 查询用户的蜘蛛
func (s *spiderService) ListByOwner(ctx context.Context, ownerID uint, page, pageSize int) ([]*models.Spider, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	spiders, err := s.spiderRepo.FindByOwner(ctx, ownerID, pagination)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return spiders, pagination.Total, nil
}

// Delete 删除蜘蛛（仅归属方）
func (s *spiderService) Delete(ctx context.Context, spiderID, ownerID uint) error {
	spider, err := s.spiderRepo.FindByID(ctx, spiderID)
	if err != nil {
		return err
	}

	if spider.OwnerID != ownerID {
		return apperrors.Newf(apperrors.ErrSpiderNotOwned,
			"蜘蛛ID: %d, 用户ID: %d", spiderID, ownerID)
	}

	return s.spiderRepo.Delete(ctx, spiderID)
}

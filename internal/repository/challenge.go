package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/models"
	"gorm.io/gorm"
)

// ChallengeRepository 挑战仓储接口
// 状态只能通过Transition推进：单条条件更新（乐观并发），
// 并发竞争的败方得到冲突错误而不是脏写。
type ChallengeRepository interface {
	BaseRepository
	Create(ctx context.Context, challenge *models.Challenge) error
	FindByID(ctx context.Context, id uint) (*models.Challenge, error)
	Transition(ctx context.Context, id uint, expectedStatus, newStatus string, updates map[string]interface{}) error
	TransitionTx(tx *gorm.DB, id uint, expectedStatus, newStatus string, updates map[string]interface{}) error
	ListOpen(ctx context.Context, now time.Time, pagination *Pagination) ([]*models.Challenge, error)
	ListByUser(ctx context.Context, userID uint, pagination *Pagination) ([]*models.Challenge, error)
	HasOpenForSpider(ctx context.Context, spiderID uint) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// challengeRepo 挑战仓储实现
type challengeRepo struct {
	*BaseRepo
}

// NewChallengeRepository 创建挑战仓储
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建挑战
func (r *challengeRepo) Create(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

// FindByID 根据ID查找挑战
func (r *challengeRepo) FindByID(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).First(&challenge, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrChallengeNotFound, "挑战ID: %d", id)
		}
		return nil, err
	}
	return &challenge, nil
}

// Transition 推进挑战状态
func (r *challengeRepo) Transition(ctx context.Context, id uint, expectedStatus, newStatus string, updates map[string]interface{}) error {
	return r.TransitionTx(r.db.WithContext(ctx), id, expectedStatus, newStatus, updates)
}

// TransitionTx 在事务中推进挑战状态
// 单条条件更新：只有行仍处于期望状态时才写入；
// 零行受影响即竞争失败，不产生任何变更。
func (r *challengeRepo) TransitionTx(tx *gorm.DB, id uint, expectedStatus, newStatus string, updates map[string]interface{}) error {
	if !models.CanTransition(expectedStatus, newStatus) {
		return apperrors.Newf(apperrors.ErrInvalidTransition, "%s -> %s", expectedStatus, newStatus)
	}

	fields := map[string]interface{}{"status": newStatus}
	for k, v := range updates {
		fields[k] = v
	}

	result := tx.Model(&models.Challenge{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(fields)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrChallengeConflict,
			"挑战ID: %d, 期望状态: %s", id, expectedStatus)
	}

	return nil
}

// WithTx 使用事务
func (r *challengeRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &challengeRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// ListOpen 列出可接受的挑战
// 已过期但状态列仍为open的行被排除在外。
func (r *challengeRepo) ListOpen(ctx context.Context, now time.Time, pagination *Pagination) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	query := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("status = ? AND expires_at > ?", models.ChallengeStatusOpen, now)

	query.Count(&pagination.Total)

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&challenges).Error
	return challenges, err
}

// ListByUser 列出用户参与的挑战（发起或接受）
func (r *challengeRepo) ListByUser(ctx context.Context, userID uint, pagination *Pagination) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	query := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("proposer_id = ? OR accepter_id = ? OR target_id = ?", userID, userID, userID)

	query.Count(&pagination.Total)

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&challenges).Error
	return challenges, err
}

// HasOpenForSpider 检查蜘蛛是否已有未过期的开放挑战
// 同一只蜘蛛同时最多只能有一个开放挑战。
func (r *challengeRepo) HasOpenForSpider(ctx context.Context, spiderID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("proposer_spider_id = ? AND status = ? AND expires_at > ?",
			spiderID, models.ChallengeStatusOpen, time.Now()).
		Count(&count).Error
	return count > 0, err
}

// ExpireStale 批量将已过期的开放挑战标记为过期
func (r *challengeRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("status = ? AND expires_at <= ?", models.ChallengeStatusOpen, now).
		Update("status", models.ChallengeStatusExpired)
	return result.RowsAffected, result.Error
}

package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/models"
	"gorm.io/gorm"
)

// SpiderRepository 蜘蛛仓储接口
type SpiderRepository interface {
	BaseRepository
	Create(ctx context.Context, spider *models.Spider) error
	Update(ctx context.Context, spider *models.Spider) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Spider, error)
	FindByOwner(ctx context.Context, ownerID uint, pagination *Pagination) ([]*models.Spider, error)
	TransferOwnership(tx *gorm.DB, spiderID, fromUserID, toUserID uint) error
	RecordBattleResult(tx *gorm.DB, winnerSpiderID, loserSpiderID uint) error
}

// spiderRepo 蜘蛛仓储实现
type spiderRepo struct {
	*BaseRepo
}

// NewSpiderRepository 创建蜘蛛仓储
func NewSpiderRepository(db *gorm.DB) SpiderRepository {
	return &spiderRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建蜘蛛
func (r *spiderRepo) Create(ctx context.Context, spider *models.Spider) error {
	return r.db.WithContext(ctx).Create(spider).Error
}

// Update 更新蜘蛛
func (r *spiderRepo) Update(ctx context.Context, spider *models.Spider) error {
	return r.db.WithContext(ctx).Save(spider).Error
}

// Delete 删除蜘蛛（软删除）
func (r *spiderRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Spider{}, id).Error
}

// FindByID 根据ID查找蜘蛛
func (r *spiderRepo) FindByID(ctx context.Context, id uint) (*models.Spider, error) {
	var spider models.Spider
	err := r.db.WithContext(ctx).First(&spider, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrSpiderNotFound, "蜘蛛ID: %d", id)
		}
		return nil, err
	}
	return &spider, nil
}

// FindByOwner 查找用户的所有蜘蛛（分页）
func (r *spiderRepo) FindByOwner(ctx context.Context, ownerID uint, pagination *Pagination) ([]*models.Spider, error) {
	var spiders []*models.Spider
	query := r.db.WithContext(ctx).Model(&models.Spider{}).Where("owner_id = ?", ownerID)

	// 获取总数
	query.Count(&pagination.Total)

	// 分页查询
	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&spiders).Error
	return spiders, err
}

// TransferOwnership 转移蜘蛛归属
// 条件更新：只有当前归属方仍是fromUserID时才生效，
// 避免并发结算下的重复转移。
func (r *spiderRepo) TransferOwnership(tx *gorm.DB, spiderID, fromUserID, toUserID uint) error {
	result := tx.Model(&models.Spider{}).
		Where("id = ? AND owner_id = ?", spiderID, fromUserID).
		Update("owner_id", toUserID)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrSpiderNotOwned,
			"蜘蛛ID: %d, 期望归属: %d", spiderID, fromUserID)
	}

	return nil
}

// WithTx 使用事务
func (r *spiderRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &spiderRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// RecordBattleResult 在事务中记录双方蜘蛛战绩
func (r *spiderRepo) RecordBattleResult(tx *gorm.DB, winnerSpiderID, loserSpiderID uint) error {
	if err := tx.Model(&models.Spider{}).
		Where("id = ?", winnerSpiderID).
		Update("wins", gorm.Expr("wins + 1")).Error; err != nil {
		return err
	}

	return tx.Model(&models.Spider{}).
		Where("id = ?", loserSpiderID).
		Update("losses", gorm.Expr("losses + 1")).Error
}

package database

import (
	"fmt"

	"github.com/wfunc/spider-arena/internal/logger"
	"github.com/wfunc/spider-arena/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 定义需要迁移的模型
	migrationModels := []interface{}{
		// 用户相关
		&models.User{},
		&models.UserAuth{},

		// 蜘蛛相关
		&models.Spider{},

		// 挑战相关
		&models.Challenge{},

		// 战斗相关
		&models.Battle{},
		&models.BattleTurn{},
	}

	// 执行迁移
	logger.Info("开始数据库迁移...")

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	logger.Info("数据库迁移完成")
	return nil
}

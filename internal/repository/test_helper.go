package repository

import (
	"time"

	"github.com/wfunc/spider-arena/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.User{},
		&models.UserAuth{},
		&models.Spider{},
		&models.Challenge{},
		&models.Battle{},
		&models.BattleTurn{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestUser 创建测试用户
func CreateTestUser(db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Status:   "active",
	}
	if err := db.Create(user).Error; err != nil {
		panic(err)
	}
	return user
}

// CreateTestSpider 创建测试蜘蛛
func CreateTestSpider(db *gorm.DB, ownerID uint, name string) *models.Spider {
	spider := &models.Spider{
		OwnerID:    ownerID,
		Name:       name,
		Species:    "Araneus diadematus",
		Vitality:   20,
		Offense:    50,
		Agility:    30,
		Resilience: 30,
		Toxicity:   20,
		Craft:      15,
	}
	if err := db.Create(spider).Error; err != nil {
		panic(err)
	}
	return spider
}

// CreateTestChallenge 创建测试挑战
func CreateTestChallenge(db *gorm.DB, proposerID, proposerSpiderID uint, expiresAt time.Time) *models.Challenge {
	challenge := &models.Challenge{
		ProposerID:       proposerID,
		ProposerSpiderID: proposerSpiderID,
		Message:          "来战",
		Status:           models.ChallengeStatusOpen,
		ExpiresAt:        expiresAt,
	}
	if err := db.Create(challenge).Error; err != nil {
		panic(err)
	}
	return challenge
}

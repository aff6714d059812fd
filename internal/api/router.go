package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/spider-arena/internal/config"
	"github.com/wfunc/spider-arena/internal/middleware"
	"github.com/wfunc/spider-arena/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine           *gin.Engine
	db               *gorm.DB
	authHandler      *AuthHandler
	spiderHandler    *SpiderHandler
	challengeHandler *ChallengeHandler
	battleHandler    *BattleHandler
	revealHandler    *RevealWebSocketHandler
	authMiddleware   *middleware.AuthMiddleware
	log              *zap.Logger
}

// RouterDeps 路由器依赖
type RouterDeps struct {
	DB               *gorm.DB
	AuthService      service.AuthService
	SpiderService    service.SpiderService
	ChallengeService service.ChallengeService
	BattleService    service.BattleService
	WebSocketConfig  *config.WebSocket
	Logger           *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(deps *RouterDeps) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	router := &Router{
		engine:           engine,
		db:               deps.DB,
		authHandler:      NewAuthHandler(deps.AuthService),
		spiderHandler:    NewSpiderHandler(deps.SpiderService),
		challengeHandler: NewChallengeHandler(deps.ChallengeService, deps.BattleService),
		battleHandler:    NewBattleHandler(deps.BattleService),
		revealHandler:    NewRevealWebSocketHandler(deps.BattleService, deps.WebSocketConfig, deps.Logger),
		authMiddleware:   middleware.NewAuthMiddleware(deps.AuthService),
		log:              deps.Logger,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)
		}

		// 蜘蛛相关路由（需要认证）
		spiders := v1.Group("/spiders")
		spiders.Use(r.authMiddleware.RequireAuth())
		{
			spiders.POST("", r.spiderHandler.Create)
			spiders.GET("", r.spiderHandler.List)
			spiders.GET("/:id", r.spiderHandler.Get)
			spiders.DELETE("/:id", r.spiderHandler.Delete)
		}

		// 挑战相关路由（需要认证）
		challenges := v1.Group("/challenges")
		challenges.Use(r.authMiddleware.RequireAuth())
		{
			challenges.POST("", r.challengeHandler.Propose)
			challenges.GET("/open", r.challengeHandler.ListOpen)
			challenges.GET("/mine", r.challengeHandler.ListMine)
			challenges.GET("/:id", r.challengeHandler.Get)
			challenges.POST("/:id/accept", r.challengeHandler.Accept)
			challenges.DELETE("/:id", r.challengeHandler.Cancel)
		}

		// 战斗相关路由（需要认证）
		battles := v1.Group("/battles")
		battles.Use(r.authMiddleware.RequireAuth())
		{
			battles.GET("/mine", r.battleHandler.ListMine)
			battles.GET("/:id", r.battleHandler.Get)
			battles.GET("/:id/reveal", r.battleHandler.GetReveal)
		}
	}

	// WebSocket路由（握手通过query参数携带令牌）
	ws := r.engine.Group("/ws")
	ws.Use(r.authMiddleware.RequireAuth())
	{
		ws.GET("/battles/:id/reveal", r.revealHandler.StreamReveal)
	}

	// 静态文件服务
	r.engine.Static("/static", "./static")

	// 404处理
	r.engine.NoRoute(notFoundHandler)
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

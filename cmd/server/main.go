package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/spider-arena/internal/api"
	"github.com/wfunc/spider-arena/internal/config"
	"github.com/wfunc/spider-arena/internal/database"
	"github.com/wfunc/spider-arena/internal/errors"
	"github.com/wfunc/spider-arena/internal/game/battle"
	"github.com/wfunc/spider-arena/internal/logger"
	"github.com/wfunc/spider-arena/internal/repository"
	"github.com/wfunc/spider-arena/internal/service"
	"github.com/wfunc/spider-arena/internal/utils"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 挑战过期清扫间隔
const expireSweepInterval = time.Minute

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpServer       *http.Server
	challengeService service.ChallengeService

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	printStartInfo(cfg)

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动蜘蛛竞技场服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	// 初始化数据库
	if err := s.initDatabase(); err != nil {
		return err
	}

	// 组装服务与路由
	if err := s.initServices(); err != nil {
		return err
	}

	// 启动HTTP服务与后台清扫
	s.wg.Add(1)
	go s.startHTTPServer()

	s.wg.Add(1)
	go s.startExpireSweeper()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.cfg = newCfg
		logger.SetLevel(newCfg.Log.Level)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
	)

	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// initServices 组装仓储、服务与HTTP路由
func (s *Server) initServices() error {
	db := database.GetDB()

	userRepo := repository.NewUserRepository(db)
	spiderRepo := repository.NewSpiderRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	battleRepo := repository.NewBattleRepository(db)

	jwtManager := utils.NewJWTManager(
		s.cfg.Security.JWT.Secret,
		time.Duration(s.cfg.Security.JWT.ExpireHours)*time.Hour,
		time.Duration(s.cfg.Security.JWT.RefreshHours)*time.Hour,
	)

	battleCfg := &battle.Config{
		DieFaces:         s.cfg.Battle.DieFaces,
		CritThreshold:    s.cfg.Battle.CritThreshold,
		CritMultiplier:   s.cfg.Battle.CritMultiplier,
		DodgeDivisor:     s.cfg.Battle.DodgeDivisor,
		MinDamage:        s.cfg.Battle.MinDamage,
		SpecialInterval:  s.cfg.Battle.SpecialInterval,
		SpecialBonus:     s.cfg.Battle.SpecialBonus,
		MaxTurns:         s.cfg.Battle.MaxTurns,
		BaseHP:           s.cfg.Battle.BaseHP,
		VitalityHPFactor: s.cfg.Battle.VitalityHPFactor,
	}
	if err := battleCfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrConfigValidate, "战斗数值配置无效")
	}

	authService := service.NewAuthService(db, userRepo, jwtManager, s.logger)
	spiderService := service.NewSpiderService(db, spiderRepo, s.logger)
	challengeService := service.NewChallengeService(
		db, challengeRepo, spiderRepo, userRepo,
		s.cfg.Challenge.DefaultTTL, s.cfg.Challenge.MaxTTL, s.logger,
	)
	battleService := service.NewBattleService(
		db, challengeRepo, battleRepo, spiderRepo, userRepo, battleCfg, s.logger,
	)
	s.challengeService = challengeService

	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(&api.RouterDeps{
		DB:               db,
		AuthService:      authService,
		SpiderService:    spiderService,
		ChallengeService: challengeService,
		BattleService:    battleService,
		WebSocketConfig:  &s.cfg.WebSocket,
		Logger:           s.logger,
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	return nil
}

// startHTTPServer 启动HTTP服务
func (s *Server) startHTTPServer() {
	defer s.wg.Done()

	s.logger.Info("HTTP服务启动", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("HTTP服务异常退出", zap.Error(err))
	}
}

// startExpireSweeper 周期性把到期的开放挑战置为过期
func (s *Server) startExpireSweeper() {
	defer s.wg.Done()

	ticker := time.NewTicker(expireSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.challengeService.ExpireStale(s.ctx); err != nil {
				s.logger.Error("挑战过期清扫失败", zap.Error(err))
			}
		}
	}
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
		}
	}

	// 取消主上下文，触发后台goroutine退出
	s.cancel()

	// 等待所有服务关闭
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	// 同步日志
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}
	logger.Cleanup()

	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("蜘蛛竞技场服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("蜘蛛竞技场服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  spider-arena-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  SPIDER_ARENA_SERVER_PORT   服务端口")
	fmt.Println("  SPIDER_ARENA_DATABASE_DSN  数据库连接串")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  spider-arena-server -config=/path/to/config.yaml")
	fmt.Println("  spider-arena-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	fmt.Println("═══════════════════════════════════════════════")
	fmt.Println("              蜘蛛竞技场后端服务器")
	fmt.Println("═══════════════════════════════════════════════")
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Println("═══════════════════════════════════════════════")
}

package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	WebSocket WebSocket `mapstructure:"websocket"`
	Battle    Battle    `mapstructure:"battle"`
	Challenge Challenge `mapstructure:"challenge"`
	Log       Log       `mapstructure:"log"`
	Security  Security  `mapstructure:"security"`
}

// Server 服务器配置
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database 数据库配置
type Database struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WebSocket 战报回放WebSocket配置
type WebSocket struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	TurnInterval    time.Duration `mapstructure:"turn_interval"` // 逐回合推送间隔
}

// Battle 战斗数值配置
// 伤害/闪避/暴击公式的常量是可调参数，不是固定契约；
// 修改任何一项都会改变既有种子的复盘结果。
type Battle struct {
	DieFaces          int `mapstructure:"die_faces"`           // 骰面数（d20）
	CritThreshold     int `mapstructure:"crit_threshold"`      // 暴击阈值（掷出≥该值触发）
	CritMultiplier    int `mapstructure:"crit_multiplier"`     // 暴击倍率（百分比，200 = 2倍）
	DodgeDivisor      int `mapstructure:"dodge_divisor"`       // 敏捷差除数（越小闪避越受敏捷影响）
	MinDamage         int `mapstructure:"min_damage"`          // 命中时的最低伤害
	SpecialInterval   int `mapstructure:"special_interval"`    // 每方第N次行动使用特殊攻击
	SpecialBonus      int `mapstructure:"special_bonus"`       // 特殊攻击伤害加成（百分比，50 = +50%）
	MaxTurns          int `mapstructure:"max_turns"`           // 回合数硬上限
	BaseHP            int `mapstructure:"base_hp"`             // 血量基数
	VitalityHPFactor  int `mapstructure:"vitality_hp_factor"`  // 体力对血量的系数
}

// Challenge 挑战配置
type Challenge struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"` // 默认有效期
	MaxTTL     time.Duration `mapstructure:"max_ttl"`     // 最长有效期
}

// Log 日志配置
type Log struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFile           `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFile 日志文件配置
type LogFile struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Security 安全配置
type Security struct {
	JWT JWT `mapstructure:"jwt"`
}

// JWT JWT配置
type JWT struct {
	Secret       string `mapstructure:"secret"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	RefreshHours int    `mapstructure:"refresh_hours"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("SPIDER_ARENA")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		if err = v.Unmarshal(cfg); err != nil {
			return
		}
	})

	return err
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/spider-arena.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "info")
	v.SetDefault("database.auto_migrate", true)

	// WebSocket默认配置
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.turn_interval", "800ms")

	// 战斗数值默认配置
	v.SetDefault("battle.die_faces", 20)
	v.SetDefault("battle.crit_threshold", 20)
	v.SetDefault("battle.crit_multiplier", 200)
	v.SetDefault("battle.dodge_divisor", 4)
	v.SetDefault("battle.min_damage", 1)
	v.SetDefault("battle.special_interval", 3)
	v.SetDefault("battle.special_bonus", 50)
	v.SetDefault("battle.max_turns", 50)
	v.SetDefault("battle.base_hp", 20)
	v.SetDefault("battle.vitality_hp_factor", 2)

	// 挑战默认配置
	v.SetDefault("challenge.default_ttl", "24h")
	v.SetDefault("challenge.max_ttl", "168h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "spider-arena.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 安全默认配置
	v.SetDefault("security.jwt.secret", "change-me-in-production")
	v.SetDefault("security.jwt.expire_hours", 24)
	v.SetDefault("security.jwt.refresh_hours", 168)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载")
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool 获取布尔配置
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}

// IsSet 检查配置项是否存在
func IsSet(key string) bool {
	return v.IsSet(key)
}

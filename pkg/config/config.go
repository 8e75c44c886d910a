package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Redis  RedisConfig  `mapstructure:"redis"`
	MQ     MQConfig     `mapstructure:"mq"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	GrpcPort int    `mapstructure:"grpc_port"`
	Mode     string `mapstructure:"mode"`
}

type GameConfig struct {
	TickRate    int     `mapstructure:"tick_rate"`
	ArenaWidth  float64 `mapstructure:"arena_width"`
	ArenaHeight float64 `mapstructure:"arena_height"`
	Character   string  `mapstructure:"character"`
}

type SyncConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	SendBuffer int    `mapstructure:"send_buffer"`
	RecvBuffer int    `mapstructure:"recv_buffer"`
}

type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	PresenceTTL string `mapstructure:"presence_ttl"`
}

type MQConfig struct {
	Url       string `mapstructure:"url"`
	QueueName string `mapstructure:"queue_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.grpc_port", 9000)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("game.tick_rate", 60)
	v.SetDefault("game.arena_width", 800.0)
	v.SetDefault("game.arena_height", 600.0)
	v.SetDefault("game.character", "naruto")

	v.SetDefault("sync.endpoint", "ws://localhost:8000/ws/")
	v.SetDefault("sync.send_buffer", 64)
	v.SetDefault("sync.recv_buffer", 256)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.presence_ttl", "2m")

	v.SetDefault("mq.url", "")
	v.SetDefault("mq.queue_name", "arena.scores")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config from path (or ./config.yaml when path is empty). A missing
// file is not an error; defaults and ARENA_* environment variables apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Game.TickRate <= 0 {
		return fmt.Errorf("game.tick_rate must be > 0, got %d", c.Game.TickRate)
	}
	if c.Game.ArenaWidth <= 0 || c.Game.ArenaHeight <= 0 {
		return fmt.Errorf("arena size must be positive, got %vx%v", c.Game.ArenaWidth, c.Game.ArenaHeight)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Sync.SendBuffer <= 0 || c.Sync.RecvBuffer <= 0 {
		return fmt.Errorf("sync buffers must be > 0")
	}
	return nil
}

func InitConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		logrus.Fatalf("Unable to load config: %v", err)
	}
	AppConfig = cfg
	SetupLogging(cfg.Log)
}

// SetupLogging applies level and format to the standard logrus logger.
func SetupLogging(lc LogConfig) {
	if lvl, err := logrus.ParseLevel(lc.Level); err == nil {
		logrus.SetLevel(lvl)
	} else {
		logrus.Warnf("unknown log level %q, keeping %s", lc.Level, logrus.GetLevel())
	}
	if lc.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SettingsConfig 开关存储配置
type SettingsConfig struct {
	Driver string `mapstructure:"driver"` // memory / file / sqlite
	Path   string `mapstructure:"path"`   // file 与 sqlite 的路径
}

// ServerConfig HTTP 宿主配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoopConfig 事件循环配置
type LoopConfig struct {
	QueueSize         int `mapstructure:"queue_size"`
	MaxDeliveryRounds int `mapstructure:"max_delivery_rounds"` // 每个任务后检查点最多投递轮数
}

// Config 保存所有配置
type Config struct {
	DictionaryPath      string         `mapstructure:"dictionary_path"`
	NormalizeDictionary bool           `mapstructure:"normalize_dictionary"` // 丢弃仅大小写不同的重复键
	Settings            SettingsConfig `mapstructure:"settings"`
	Server              ServerConfig   `mapstructure:"server"`
	Loop                LoopConfig     `mapstructure:"loop"`
	Debug               bool           `mapstructure:"debug"`
	LogLevel            string         `mapstructure:"log_level"`
}

// LoadConfig 从文件加载配置。未指定路径时在家目录和当前目录查找 .overlay.yaml，
// 找不到则使用默认值。环境变量前缀 OVERLAY，例如 OVERLAY_DICTIONARY_PATH。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".overlay")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("OVERLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Settings.Path == "" && config.Settings.Driver != "memory" {
		config.Settings.Path = defaultSettingsPath(config.Settings.Driver)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		DictionaryPath:      "dictionary.toml",
		NormalizeDictionary: false,
		Settings: SettingsConfig{
			Driver: "file",
			Path:   defaultSettingsPath("file"),
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Loop: LoopConfig{
			QueueSize:         64,
			MaxDeliveryRounds: 16,
		},
		Debug:    false,
		LogLevel: "info",
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Settings.Driver {
	case "memory":
	case "file", "sqlite":
		if c.Settings.Path == "" {
			return fmt.Errorf("settings.path must be specified for driver %q", c.Settings.Driver)
		}
	default:
		return fmt.Errorf("unknown settings driver %q", c.Settings.Driver)
	}

	if c.Loop.QueueSize <= 0 {
		return fmt.Errorf("loop.queue_size must be positive, got %d", c.Loop.QueueSize)
	}
	if c.Loop.MaxDeliveryRounds <= 0 {
		return fmt.Errorf("loop.max_delivery_rounds must be positive, got %d", c.Loop.MaxDeliveryRounds)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must be specified")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	def := NewDefaultConfig()
	v.SetDefault("dictionary_path", def.DictionaryPath)
	v.SetDefault("normalize_dictionary", def.NormalizeDictionary)
	v.SetDefault("settings.driver", def.Settings.Driver)
	v.SetDefault("settings.path", "")
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("loop.queue_size", def.Loop.QueueSize)
	v.SetDefault("loop.max_delivery_rounds", def.Loop.MaxDeliveryRounds)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("log_level", def.LogLevel)
}

// defaultSettingsPath 默认设置文件位置
func defaultSettingsPath(driver string) string {
	name := "settings.yaml"
	if driver == "sqlite" {
		name = "settings.db"
	}

	// 优先使用系统配置目录
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "overlay", name)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".overlay", name)
	}
	return filepath.Join(".overlay", name)
}

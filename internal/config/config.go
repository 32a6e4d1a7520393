package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// OneBotConfig 群消息通道配置
type OneBotConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	AccessToken    string `mapstructure:"access_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// KafkaConfig 变更事件发布配置，brokers 为空表示关闭
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Config 桥接服务配置
type Config struct {
	UserID           string   `mapstructure:"user_id"`           // 被跟踪的 Discord 用户 ID
	QQGroups         []string `mapstructure:"qq_groups"`         // 推送目标群号
	EnableActivities []int    `mapstructure:"enable_activities"` // 启用的活动类型，空表示全部
	LanyardURL       string   `mapstructure:"lanyard_url"`       // 留空用官方端点

	// 兼容保留，核心逻辑不使用
	CheckIntervalSeconds int    `mapstructure:"check_interval_seconds"`
	LanyardAPIKey        string `mapstructure:"lanyard_api_key"`

	HTTPAddr string       `mapstructure:"http_addr"` // 管理接口监听地址
	Redis    RedisConfig  `mapstructure:"redis"`
	OneBot   OneBotConfig `mapstructure:"onebot"`
	Kafka    KafkaConfig  `mapstructure:"kafka"`
}

// Load 按 APP_ENV 加载 configs/config.{env}.yaml
func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败：%w", err)
	}

	viper.SetDefault("http_addr", ":8080")
	viper.SetDefault("redis.pool_size", 10)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("加载配置失败：%w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 启动期校验，出错直接让服务起不来
func (c *Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("配置错误：user_id 不能为空")
	}
	if len(c.QQGroups) == 0 {
		return fmt.Errorf("配置错误：qq_groups 不能为空")
	}
	if c.OneBot.BaseURL == "" {
		return fmt.Errorf("配置错误：onebot.base_url 不能为空")
	}
	return nil
}

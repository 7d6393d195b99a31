package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 全局配置，来源是 config.yaml 加环境变量覆盖
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	TikTok   TikTokConfig   `mapstructure:"tiktok"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN 拼 postgres 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// TikTokConfig 平台应用配置
type TikTokConfig struct {
	AppKey          string `mapstructure:"app_key"`
	AppSecret       string `mapstructure:"app_secret"`
	APIBaseURI      string `mapstructure:"api_base_uri"`
	AuthBaseURI     string `mapstructure:"auth_base_uri"`
	AuthorizeURL    string `mapstructure:"authorize_url"`
	DefaultCurrency string `mapstructure:"default_currency"`
	IntegrationID   int64  `mapstructure:"integration_id"`
}

// KafkaConfig 订单事件投递配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// StorageConfig 面单归档存储配置
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	CDNDomain string `mapstructure:"cdn_domain"`
	BasePath  string `mapstructure:"base_path"`
}

// TasksConfig 定时任务 cron 表达式 (5 段)
type TasksConfig struct {
	TokenRefreshSpec string        `mapstructure:"token_refresh_spec"`
	OrderSyncSpec    string        `mapstructure:"order_sync_spec"`
	ProductSyncSpec  string        `mapstructure:"product_sync_spec"`
	SettlementSpec   string        `mapstructure:"settlement_spec"`
	JobTimeout       time.Duration `mapstructure:"job_timeout"`
}

// ==================== 加载 ====================

// Load 读取配置，配置文件可缺省，环境变量前缀 TIKTOK_SHOP
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TIKTOK_SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时用默认值加环境变量跑
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "tiktok_shop")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("tiktok.api_base_uri", "https://open-api.tiktokglobalshop.com")
	v.SetDefault("tiktok.auth_base_uri", "https://auth.tiktok-shops.com")
	v.SetDefault("tiktok.authorize_url", "https://services.tiktokshop.com/open/authorize")
	v.SetDefault("tiktok.default_currency", "USD")
	v.SetDefault("tiktok.integration_id", 11006)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "order-events")

	v.SetDefault("storage.provider", "")
	v.SetDefault("storage.base_path", "tiktok-shop")

	v.SetDefault("tasks.token_refresh_spec", "*/40 * * * *")
	v.SetDefault("tasks.order_sync_spec", "*/15 * * * *")
	v.SetDefault("tasks.product_sync_spec", "30 */4 * * *")
	v.SetDefault("tasks.settlement_spec", "0 1 * * *")
	v.SetDefault("tasks.job_timeout", 30*time.Minute)
}

func (c *Config) validate() error {
	if c.TikTok.AppKey == "" {
		return fmt.Errorf("缺少配置: tiktok.app_key")
	}
	if c.TikTok.AppSecret == "" {
		return fmt.Errorf("缺少配置: tiktok.app_secret")
	}
	return nil
}

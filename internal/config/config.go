// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（密码、密钥）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 凭据单一数据源：密码/密钥只存在 .env 中，YAML 不存储任何密码。
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Auth     AuthYAMLConfig `yaml:"auth"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig MongoDB 配置
type DatabaseConfig struct {
	URI      string `yaml:"uri"` // 连接 URI（优先于 host/port），如 mongodb://localhost:27017
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"` // 数据库名称
	User     string `yaml:"-"`    // 只从 MONGO_ROOT_USER 环境变量读取
	Password string `yaml:"-"`    // 只从 MONGO_ROOT_PASSWORD 环境变量读取
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"` // 只从 REDIS_PASSWORD 环境变量读取
}

// MinIOConfig MinIO 对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// AuthYAMLConfig 认证配置（YAML 部分；JWTSecret 只走环境变量）
type AuthYAMLConfig struct {
	FarmerTokenTTL string `yaml:"farmer_token_ttl"` // 例如 "1h"
	BuyerTokenTTL  string `yaml:"buyer_token_ttl"`  // 例如 "1h"
	DriverTokenTTL string `yaml:"driver_token_ttl"` // 例如 "24h"
	SecureCookie   bool   `yaml:"secure_cookie"`
}

// SMTPConfig 重置邮件 SMTP 配置
type SMTPConfig struct {
	Host     string `yaml:"host"` // 为空时退化为 log-only mailer
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 SMTP_PASSWORD 环境变量读取
}

// AuthSettings 认证最终配置
type AuthSettings struct {
	JWTSecret      string
	FarmerTokenTTL time.Duration
	BuyerTokenTTL  time.Duration
	DriverTokenTTL time.Duration
	SecureCookie   bool
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env         Environment
	MongoURI    string
	MongoDBName string
	RedisURL    string
	APIPort     string
	MinIO       MinIOConfig
	Auth        AuthSettings
	SMTP        SMTPConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	// 从环境变量获取敏感信息
	yamlCfg.Database.User = os.Getenv("MONGO_ROOT_USER")
	yamlCfg.Database.Password = os.Getenv("MONGO_ROOT_PASSWORD")
	yamlCfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	yamlCfg.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	yamlCfg.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	yamlCfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")

	cfg := &Config{
		Env:         env,
		MongoURI:    buildMongoURI(yamlCfg.Database),
		MongoDBName: yamlCfg.Database.Name,
		RedisURL:    buildRedisURL(yamlCfg.Redis),
		APIPort:     yamlCfg.Server.Port,
		MinIO:       yamlCfg.MinIO,
		Auth: AuthSettings{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			FarmerTokenTTL: parseDuration(yamlCfg.Auth.FarmerTokenTTL, time.Hour),
			BuyerTokenTTL:  parseDuration(yamlCfg.Auth.BuyerTokenTTL, time.Hour),
			DriverTokenTTL: parseDuration(yamlCfg.Auth.DriverTokenTTL, 24*time.Hour),
			SecureCookie:   yamlCfg.Auth.SecureCookie || env == EnvProduction,
		},
		SMTP: yamlCfg.SMTP,
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	// 1. 初始化默认值
	cfg := &YAMLConfig{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Host: "localhost", Port: 27017, Name: "freshly_market"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		MinIO:    MinIOConfig{Endpoint: "localhost:9000", Bucket: "freshly-market"},
		Auth:     AuthYAMLConfig{FarmerTokenTTL: "1h", BuyerTokenTTL: "1h", DriverTokenTTL: "24h"},
		SMTP:     SMTPConfig{Port: 587},
	}

	// 2. 加载 common.yaml（公共配置）
	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	// 3. 加载 {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

// buildMongoURI 构建 MongoDB 连接 URI（显式 uri 优先）
func buildMongoURI(db DatabaseConfig) string {
	if db.URI != "" {
		return db.URI
	}
	if db.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", url.QueryEscape(db.User), url.QueryEscape(db.Password), db.Host, db.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", db.Host, db.Port)
}

// buildRedisURL 构建 Redis 连接字符串
func buildRedisURL(r RedisConfig) string {
	if r.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", r.Password, r.Host, r.Port, r.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", r.Host, r.Port, r.DB)
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Mongo: %s/%s, Redis: %s}",
		c.Env, maskPassword(c.MongoURI), c.MongoDBName, maskPassword(c.RedisURL))
}

// maskPassword 隐藏连接串中的密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:@/]*:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}

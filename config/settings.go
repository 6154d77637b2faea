package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/hybridrec/pipeline"
)

// PathEnvVar 可以覆盖配置文件路径。
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths 按顺序查找配置文件，找到第一个即使用。
var DefaultPaths = []string{
	"hybridrec.yaml",
	"hybridrec.yml",
	"/etc/hybridrec/config.yaml",
}

// Settings 是进程级配置：数据库、缓存、引擎参数、日志、指标、HTTP 服务。
// 加载顺序：默认值 → 配置文件（YAML）→ 环境变量。
type Settings struct {
	Database DatabaseSettings `koanf:"database"`
	Redis    RedisSettings    `koanf:"redis"`
	Engine   EngineSettings   `koanf:"engine"`
	Log      LogSettings      `koanf:"log"`
	Metrics  MetricsSettings  `koanf:"metrics"`
	Server   ServerSettings   `koanf:"server"`
}

type DatabaseSettings struct {
	Driver               string `koanf:"driver" validate:"oneof=postgres pgx mysql"`
	Host                 string `koanf:"host" validate:"required"`
	Port                 int    `koanf:"port" validate:"min=1,max=65535"`
	User                 string `koanf:"user"`
	Password             string `koanf:"password"`
	Name                 string `koanf:"name" validate:"required"`
	SSLMode              string `koanf:"sslmode"`
	CatalogTable         string `koanf:"catalog_table" validate:"required"`
	RatingsTable         string `koanf:"ratings_table" validate:"required"`
	RecommendationsTable string `koanf:"recommendations_table" validate:"required"`
}

type RedisSettings struct {
	Enabled   bool   `koanf:"enabled"`
	Addr      string `koanf:"addr" validate:"required_if=Enabled true"`
	DB        int    `koanf:"db" validate:"min=0"`
	KeyPrefix string `koanf:"key_prefix"`
}

type EngineSettings struct {
	Alpha          float64 `koanf:"alpha" validate:"gt=0,lte=1"`
	Threshold      float64 `koanf:"threshold" validate:"gte=0,lt=1"`
	TopK           int     `koanf:"top_k" validate:"min=1"`
	Reason         string  `koanf:"reason" validate:"required"`
	PipelineFile   string  `koanf:"pipeline_file"`
	GenreDelimiter string  `koanf:"genre_delimiter" validate:"required"`
}

type LogSettings struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type MetricsSettings struct {
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	Job            string `koanf:"job"`
}

type ServerSettings struct {
	Addr         string `koanf:"addr" validate:"required"`
	DefaultLimit int    `koanf:"default_limit" validate:"min=1"`

	// 读取面熔断：连续失败 BreakerFailures 次后打开，BreakerTimeout 后半开探测
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`

	// 触发批处理的管理接口使用 HS256 bearer token；密钥为空时该接口关闭
	AdminJWTSecret string `koanf:"admin_jwt_secret" validate:"omitempty,min=32"`
	AdminRole      string `koanf:"admin_role" validate:"required"`
}

// DefaultSettings 返回默认配置。
func DefaultSettings() *Settings {
	return &Settings{
		Database: DatabaseSettings{
			Driver:               "postgres",
			Host:                 "localhost",
			Port:                 5432,
			User:                 "postgres",
			Name:                 "cinema",
			SSLMode:              "disable",
			CatalogTable:         "content",
			RatingsTable:         "reviews",
			RecommendationsTable: "recommendations",
		},
		Redis: RedisSettings{
			Addr:      "localhost:6379",
			KeyPrefix: "hybridrec",
		},
		Engine: EngineSettings{
			Alpha:          0.7,
			Threshold:      0.1,
			TopK:           20,
			Reason:         "Based on your preferences",
			GenreDelimiter: ",",
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsSettings{
			Job: "hybridrec",
		},
		Server: ServerSettings{
			Addr:            ":8080",
			DefaultLimit:    10,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			AdminRole:       "admin",
		},
	}
}

// Load 按 默认值 → 配置文件 → 环境变量 的顺序加载并校验配置。
// path 为空时依次查找 CONFIG_PATH 与 DefaultPaths；都不存在时只用默认值和环境变量。
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

var validate = validator.New()

// Validate 校验配置取值范围。
func (s *Settings) Validate() error {
	return validate.Struct(s)
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings 把环境变量映射到配置路径，未列出的变量被忽略。
var envMappings = map[string]string{
	"db_driver":             "database.driver",
	"db_host":               "database.host",
	"db_port":               "database.port",
	"db_user":               "database.user",
	"db_pass":               "database.password",
	"db_password":           "database.password",
	"db_name":               "database.name",
	"db_sslmode":            "database.sslmode",
	"redis_enabled":         "redis.enabled",
	"redis_addr":            "redis.addr",
	"redis_db":              "redis.db",
	"redis_key_prefix":      "redis.key_prefix",
	"hybrid_alpha":          "engine.alpha",
	"similarity_threshold":  "engine.threshold",
	"top_k":                 "engine.top_k",
	"recommendation_reason": "engine.reason",
	"pipeline_file":         "engine.pipeline_file",
	"log_level":             "log.level",
	"log_format":            "log.format",
	"pushgateway_url":       "metrics.pushgateway_url",
	"metrics_job":           "metrics.job",
	"http_addr":             "server.addr",
	"recommendations_limit": "server.default_limit",
	"breaker_failures":      "server.breaker_failures",
	"breaker_timeout":       "server.breaker_timeout",
	"admin_jwt_secret":      "server.admin_jwt_secret",
	"admin_role":            "server.admin_role",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// DSN 按驱动生成连接串。
func (d DatabaseSettings) DSN() string {
	switch d.Driver {
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		cfg.DBName = d.Name
		cfg.ParseTime = true
		return cfg.FormatDSN()
	default:
		sslmode := d.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			Path:     "/" + d.Name,
			RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
		}
		switch {
		case d.User != "" && d.Password != "":
			u.User = url.UserPassword(d.User, d.Password)
		case d.User != "":
			u.User = url.User(d.User)
		}
		return u.String()
	}
}

// PipelineConfig 返回逐用户 Pipeline 的配置：设置了 engine.pipeline_file 时从文件加载，
// 否则使用内置默认配置，并把 threshold / top_k / reason 写入对应节点。
func (s *Settings) PipelineConfig() (*pipeline.Config, error) {
	if s.Engine.PipelineFile != "" {
		return pipeline.Load(s.Engine.PipelineFile)
	}
	cfg := pipeline.Default()
	for i := range cfg.Pipeline.Nodes {
		nc := &cfg.Pipeline.Nodes[i]
		if nc.Config == nil {
			nc.Config = make(map[string]interface{})
		}
		switch nc.Type {
		case "rank.hybrid_cf":
			nc.Config["threshold"] = s.Engine.Threshold
		case "rerank.topn":
			nc.Config["n"] = s.Engine.TopK
		case "rerank.reason":
			nc.Config["reason"] = s.Engine.Reason
		}
	}
	return cfg, nil
}

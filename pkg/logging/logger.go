// Package logging 提供基于 zerolog 的全局结构化日志。
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Int("users", n).Msg("run finished")
//	logging.Component("engine").Warn().Msg("no recommendations")
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level：trace / debug / info / warn / error，默认 info
	Level string
	// Format：json / console，默认 json
	Format string
	// Caller 是否输出调用位置
	Caller bool
	// Output 默认 os.Stderr
	Output io.Writer
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger(Config{})
}

// Init 重新配置全局 logger，可重复调用。
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	log = ctx.Logger()
}

// ParseLevel 把字符串转换为 zerolog.Level，无法识别时返回 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger 返回全局 logger 的副本。
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Component 返回带 component 字段的子 logger。
func Component(name string) *zerolog.Logger {
	l := Logger().With().Str("component", name).Logger()
	return &l
}

// Ctx 返回 ctx 上绑定的 logger；没有绑定时返回全局 logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l != zerolog.DefaultContextLogger && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	l := Logger()
	return &l
}

// WithContext 把 logger 绑定到 ctx。
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

func Debug() *zerolog.Event { l := Logger(); return l.Debug() }
func Info() *zerolog.Event  { l := Logger(); return l.Info() }
func Warn() *zerolog.Event  { l := Logger(); return l.Warn() }
func Error() *zerolog.Event { l := Logger(); return l.Error() }

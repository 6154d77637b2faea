// Command hybridrec 计算并发布混合推荐，或对外提供读取服务。
//
//	hybridrec run   [-config path]   执行一轮批处理后退出
//	hybridrec serve [-config path]   启动 HTTP 服务
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushteam/hybridrec/config"
	_ "github.com/rushteam/hybridrec/config/builders"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/pkg/metrics"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/service"
	"github.com/rushteam/hybridrec/store"
)

const usage = `usage: hybridrec <command> [flags]

commands:
  run     compute recommendations once and publish them
  serve   serve recommendations over HTTP
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	_ = fs.Parse(os.Args[2:])

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hybridrec: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: settings.Log.Level, Format: settings.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		err = runOnce(ctx, settings)
	case "serve":
		err = serve(ctx, settings)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logging.Error().Err(err).Str("command", cmd).Msg("hybridrec failed")
		os.Exit(1)
	}
}

// app 是一次进程内共享的依赖。
type app struct {
	db      *sql.DB
	dialect store.Dialect
	kv      core.KeyValueStore
	source  *store.SQLSource
	metrics *metrics.Metrics
	engine  *engine.Engine
}

func (a *app) Close() {
	if a.kv != nil {
		_ = a.kv.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func build(ctx context.Context, s *config.Settings) (*app, error) {
	a := &app{metrics: metrics.New()}

	dialect, err := store.DialectFor(s.Database.Driver)
	if err != nil {
		return nil, err
	}
	a.dialect = dialect

	db, err := store.OpenSQL(ctx, s.Database.Driver, s.Database.DSN())
	if err != nil {
		return nil, err
	}
	a.db = db

	if s.Redis.Enabled {
		rs, err := store.NewRedisStore(ctx, s.Redis.Addr, s.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.kv = rs
	}

	pcfg, err := s.PipelineConfig()
	if err != nil {
		a.Close()
		return nil, err
	}
	p, err := config.BuildPipeline(pcfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	tables := store.Tables{
		Catalog:         s.Database.CatalogTable,
		Ratings:         s.Database.RatingsTable,
		Recommendations: s.Database.RecommendationsTable,
	}
	sinks := []core.RecommendationSink{store.NewSQLSink(db, dialect, tables.Recommendations)}
	if a.kv != nil {
		sinks = append(sinks, store.NewKVSink(a.kv, s.Redis.KeyPrefix))
	}

	a.source = store.NewSQLSource(db, dialect, tables)
	e := engine.New(a.source, p, sinks...)
	e.Features.GenreDelimiter = s.Engine.GenreDelimiter
	e.Hybrid.CollaborativeWeight = s.Engine.Alpha
	e.Reason = s.Engine.Reason
	e.Metrics = a.metrics
	a.engine = e
	return a, nil
}

func runOnce(ctx context.Context, s *config.Settings) error {
	a, err := build(ctx, s)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.engine.Run(ctx)
	if perr := a.metrics.Push(context.WithoutCancel(ctx), s.Metrics.PushgatewayURL, s.Metrics.Job); perr != nil {
		logging.Warn().Err(perr).Msg("push metrics failed")
	}
	if core.IsNoData(err) {
		return nil
	}
	return err
}

func serve(ctx context.Context, s *config.Settings) error {
	a, err := build(ctx, s)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		reader   core.RecommendationReader
		fallback recall.Source
	)
	if a.kv != nil {
		kvReader := store.NewKVReader(a.kv, s.Redis.KeyPrefix)
		reader = kvReader
		fallback = &recall.Hot{Store: a.kv, KeyFn: kvReader.HotKey}
	} else {
		reader = store.NewSQLReader(a.db, a.dialect, s.Database.RecommendationsTable)
		fallback = &recall.Hot{IDs: popularIDs(ctx, a.engine.Source)}
	}

	reader = service.NewBreakerReader(reader, service.BreakerConfig{
		FailureThreshold: s.Server.BreakerFailures,
		Timeout:          s.Server.BreakerTimeout,
	})
	svc := service.NewRecommendService(reader, fallback, a.engine, s.Server.DefaultLimit).WithContent(a.source)
	srv := &http.Server{
		Addr:              s.Server.Addr,
		Handler: service.NewRouter(svc, a.metrics, service.AdminAuth{
			Secret: []byte(s.Server.AdminJWTSecret),
			Role:   s.Server.AdminRole,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logging.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

// popularIDs 在没有缓存时从目录计算热门兜底列表，失败时返回空列表。
func popularIDs(ctx context.Context, src core.DataSource) []int64 {
	catalog, err := src.LoadCatalog(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("load catalog for popularity fallback failed")
		return nil
	}
	return recall.PopularityOrder(catalog)
}

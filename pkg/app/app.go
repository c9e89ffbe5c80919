// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/cloudbox/pkg/api"
	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/jobs"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/metrics"
	"github.com/yeisme/cloudbox/pkg/scheduler"
	"github.com/yeisme/cloudbox/pkg/tracing"
)

// App 持有 HTTP 引擎与后台资源.
type App struct {
	Engine    *gin.Engine
	Manager   *storage.Manager
	Scheduler *scheduler.Scheduler
	config    *configs.AppConfig
}

// NewApp 读取配置并初始化追踪、监控、存储与定时任务.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	if err := configs.ValidateConfig(); err != nil {
		return nil, err
	}

	config := configs.GetConfig()
	l := log.Logger()

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var sched *scheduler.Scheduler

	if config.Jobs.Enabled {
		if sched, err = newScheduler(manager); err != nil {
			_ = manager.Close()
			return nil, err
		}
	}

	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := api.NewEngine(manager, sched)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine:    engine,
		Manager:   manager,
		Scheduler: sched,
		config:    config,
	}, nil
}

func newScheduler(mgr *storage.Manager) (*scheduler.Scheduler, error) {
	loc, err := jobs.Location(mgr.Config.Jobs)
	if err != nil {
		return nil, fmt.Errorf("jobs timezone: %w", err)
	}

	sched, err := scheduler.NewScheduler(scheduler.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(sched, mgr); err != nil {
		_ = sched.Stop()
		return nil, err
	}

	return sched, nil
}

// Run 启动 HTTP 服务与调度器，收到 SIGINT/SIGTERM 或 ctx 结束后优雅退出.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := log.Logger()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.Scheduler != nil {
		a.Scheduler.Start()
	}

	errCh := make(chan error, 1)

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
		l.Info().Msg("Shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetTimeoutDuration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	a.close(shutdownCtx)

	return runErr
}

func (a *App) close(ctx context.Context) {
	l := log.Logger()

	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			l.Error().Err(err).Msg("Scheduler stop failed")
		}
	}

	if err := a.Manager.Close(); err != nil {
		l.Error().Err(err).Msg("Storage close failed")
	}

	if err := tracing.ShutdownTracer(ctx); err != nil {
		l.Error().Err(err).Msg("Tracer shutdown failed")
	}
}

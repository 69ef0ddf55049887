package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"TradePilot/internal/usecase"
	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
	applogger "TradePilot/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP server, the optional
// snapshot cron, and infrastructure teardown.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Handler
	ledger     *usecase.Ledger
	httpServer *xhttp.Server
	scheduler  *cron.Cron
	closers    []func() error
}

// New creates a new App. closers run in order during shutdown.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, ledger *usecase.Ledger, closers ...func() error) *App {
	return &App{
		cfg:     cfg,
		l:       l,
		handler: handler,
		ledger:  ledger,
		closers: closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	if a.cfg.Snapshot.CronEnabled {
		a.scheduler = cron.New()
		_, err := a.scheduler.AddFunc(a.cfg.Snapshot.CronSpec, func() {
			if _, err := a.ledger.Snapshot(ctx); err != nil {
				a.l.Error("scheduled snapshot failed", applogger.Error(err))
				return
			}
			a.l.Info("scheduled snapshot recorded")
		})
		if err != nil {
			a.l.Error("snapshot cron registration failed",
				applogger.String("spec", a.cfg.Snapshot.CronSpec),
				applogger.Error(err),
			)
		} else {
			a.scheduler.Start()
			a.l.Info("snapshot cron started", applogger.String("spec", a.cfg.Snapshot.CronSpec))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.l.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("symbols", a.cfg.Market.Symbols),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		cronCtx := a.scheduler.Stop()
		<-cronCtx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}

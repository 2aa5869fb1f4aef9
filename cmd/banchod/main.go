package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/gobancho/internal/bancho"
	"github.com/udisondev/gobancho/internal/bancho/web"
	"github.com/udisondev/gobancho/internal/config"
	"github.com/udisondev/gobancho/internal/db"
	"github.com/udisondev/gobancho/internal/events"
	"github.com/udisondev/gobancho/internal/irc"
	"github.com/udisondev/gobancho/internal/jobs"
	"github.com/udisondev/gobancho/internal/ranking"
	"github.com/udisondev/gobancho/internal/session"
)

const ConfigPath = "config/bancho.yaml"

// botUserID — строка пользователя, из которой создаётся бот сервера.
const botUserID = 1

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("GOBANCHO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadBancho(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("gobancho starting", "ports", cfg.Ports, "http", cfg.HTTPPort, "irc", cfg.IRCPort)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	leaderboards := ranking.NewRedis(rdb)
	slog.Info("leaderboard cache connected", "addr", cfg.Redis.Addr)

	botUser, err := database.UserByID(ctx, botUserID)
	if err != nil {
		return fmt.Errorf("fetching bot user: %w", err)
	}
	if botUser == nil {
		return fmt.Errorf("bot user %d not found, run migrations first", botUserID)
	}

	b := bancho.New(cfg, database, bancho.BcryptVerifier{}, leaderboards, session.NopGeoResolver{}, botUser)

	g, gctx := errgroup.WithContext(ctx)

	for _, port := range cfg.Ports {
		addr := fmt.Sprintf("%s:%d", cfg.BindAddress, port)
		g.Go(func() error {
			srv := bancho.NewServer(b)
			if err := srv.Run(gctx, addr); err != nil {
				return fmt.Errorf("tcp server %s: %w", addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		h := web.NewHandler(b, int(cfg.ProtocolVersion))
		addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.HTTPPort)
		if err := h.Run(gctx, addr); err != nil {
			return fmt.Errorf("http server %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		srv := irc.NewServer(b)
		addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.IRCPort)
		if err := srv.Run(gctx, addr); err != nil {
			return fmt.Errorf("irc gateway %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		return jobs.NewKeepalive(b.Registry, cfg.PingInterval, cfg.Timeout).Run(gctx)
	})

	g.Go(func() error {
		return runMetrics(gctx, fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.MetricsPort))
	})

	// прощаемся с клиентами до того, как умрут листенеры
	g.Go(func() error {
		<-gctx.Done()
		b.Bus.Fire(context.Background(), events.Shutdown, nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runMetrics(ctx context.Context, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()
	slog.Info("metrics endpoint listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

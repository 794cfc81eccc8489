package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/clinic"
	"dental-clinic-admin/internal/config"
	gweb "dental-clinic-admin/internal/grpcweb"
	"dental-clinic-admin/internal/handler"
	"dental-clinic-admin/internal/logger"
	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/notify"
	"dental-clinic-admin/internal/seed"
	"dental-clinic-admin/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "dental-clinic-admin")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openKV(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeKV()

	opts := []clinic.Option{
		clinic.WithLogger(log),
		clinic.WithLocation(cfg.Location),
		clinic.WithAuthDelay(cfg.AuthDelay),
	}
	if cfg.MQTTEnabled {
		pub, err := notify.DialMQTT(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
		})
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer pub.Close()
		opts = append(opts, clinic.WithPublisher(pub))
		log.Info("publishing events", zap.String("broker", cfg.MQTTBroker), zap.String("topic", cfg.MQTTTopic))
	}

	app := clinic.New(store.New(kv, cfg.StoragePrefix, log.Named("store")), opts...)
	var initial store.Seed
	if cfg.Seed {
		if initial, err = seed.Hashed(); err != nil {
			return err
		}
	}
	if err := app.Bootstrap(ctx, initial); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	h := handler.New(app, cfg.JWTSecret, cfg.TokenTTL, log.Named("handler"))

	rl := middleware.NewRateLimiter(cfg.LoginRPS, cfg.LoginBurst)
	go rl.Run(ctx)
	srv := grpc.NewServer(append(api.ServerOptions(),
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl, log),
			middleware.Auth(cfg.JWTSecret, app.Session()),
		),
	)...)
	api.RegisterClinicServiceServer(srv, h)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		log.Info("grpc listening", zap.String("port", cfg.GRPCPort))
		if err := srv.Serve(lis); err != nil {
			log.Error("grpc", zap.Error(err))
		}
	}()

	// browser bridge forwards to grpc on localhost
	bridge, err := gweb.New("localhost:"+cfg.GRPCPort, app, cfg.JWTSecret, log.Named("grpcweb"))
	if err != nil {
		return err
	}
	defer bridge.Close()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           bridge.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("grpc-web listening", zap.String("port", cfg.WebPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	srv.GracefulStop()
	return nil
}

// openKV connects the configured backend. The returned func releases it.
func openKV(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.KV, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return store.NewRedisKV(rdb), func() { rdb.Close() }, nil

	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		kv := store.NewPostgresKV(db)
		if err := kv.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("connected to postgres")
		return kv, func() { db.Close() }, nil
	}
	log.Info("using in-memory storage")
	return store.NewMemoryKV(), func() {}, nil
}

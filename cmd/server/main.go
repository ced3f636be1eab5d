package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/cart-store/internal/adapter/events"
	"github.com/rl1809/cart-store/internal/adapter/handler"
	"github.com/rl1809/cart-store/internal/adapter/notify"
	"github.com/rl1809/cart-store/internal/adapter/remote"
	"github.com/rl1809/cart-store/internal/adapter/storage"
	"github.com/rl1809/cart-store/internal/config"
	"github.com/rl1809/cart-store/internal/core/service"
	"github.com/rl1809/cart-store/internal/logging"
	"github.com/rl1809/cart-store/internal/port"
)

const noticeBuffer = 64

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis holds the cart snapshot and may also serve stock levels.
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  cfg.Sources.RequestTimeout,
		WriteTimeout: cfg.Sources.RequestTimeout,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	log.WithField("addr", cfg.Redis.Addr).Info("connected to redis")
	redisAdapter := storage.NewRedisAdapter(rdb, cfg.Redis.CartKey)

	var mysqlAdapter *storage.MySQLAdapter
	if cfg.UsesSource(config.SourceMySQL) {
		db, err := openMySQL(ctx, cfg.MySQL)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("connected to mysql")
		mysqlAdapter = storage.NewMySQLAdapter(db)
	}

	var api *remote.APIClient
	if cfg.UsesSource(config.SourceHTTP) {
		client, err := remote.NewAPIClient(cfg.Sources.APIBaseURL, cfg.Sources.RequestTimeout)
		if err != nil {
			return err
		}
		api = client
	}

	var stock port.StockOracle
	switch cfg.Sources.Stock {
	case config.SourceRedis:
		stock = redisAdapter
	case config.SourceMySQL:
		stock = mysqlAdapter
	default:
		stock = api
	}

	var catalog port.ProductCatalog
	switch cfg.Sources.Catalog {
	case config.SourceMySQL:
		catalog = mysqlAdapter
	default:
		catalog = api
	}

	log.WithFields(logrus.Fields{
		"stock_source":   cfg.Sources.Stock,
		"catalog_source": cfg.Sources.Catalog,
	}).Info("sources selected")

	notices := notify.NewChannelNotifier(noticeBuffer)
	notifier := notify.Multi{notify.NewLogNotifier(log), notices}
	cartService := service.NewCartService(ctx, stock, catalog, redisAdapter, notifier, log)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Events.AMQPURL != "" {
		conn, err := events.Dial(cfg.Events.AMQPURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open amqp channel: %w", err)
		}
		publisher, err := events.NewPublisher(ch, cfg.Events.QueueSize, log)
		if err != nil {
			return err
		}
		defer publisher.Close()

		unsubscribe := cartService.Subscribe(publisher.Enqueue)
		defer unsubscribe()
		g.Go(func() error {
			return publisher.Run(gctx)
		})
		log.WithField("exchange", events.EventsExchange).Info("publishing cart events")
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	grpcHandler := handler.NewGRPCHandler(cartService)
	handler.RegisterCartServiceServer(grpcServer, grpcHandler)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	g.Go(func() error {
		log.WithField("addr", cfg.Server.GRPCAddr).Info("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// HTTP server
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: handler.NewRouter(handler.NewHTTPHandler(cartService, notices), log),
	}
	g.Go(func() error {
		log.WithField("addr", cfg.Server.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP shutdown")
		}
		log.Info("HTTP server stopped")

		grpcHandler.Close()
		handler.StopGRPC(shutdownCtx, grpcServer)
		log.Info("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

func openMySQL(ctx context.Context, cfg config.MySQLConfig) (*sql.DB, error) {
	dsn, err := storage.MySQLDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

package main

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/cart-store/internal/adapter/storage"
	"github.com/rl1809/cart-store/internal/config"
	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/logging"
)

//go:embed seed.json
var defaultSeed []byte

type seedData struct {
	Products []domain.Product `json:"products"`
	Stock    []domain.Stock   `json:"stock"`
}

func main() {
	file := flag.String("file", "", "seed file (defaults to the bundled catalog)")
	toRedis := flag.Bool("redis", true, "write stock levels to Redis")
	toMySQL := flag.Bool("mysql", false, "create tables and write products and stock to MySQL")
	resetCart := flag.Bool("reset-cart", false, "delete the saved cart snapshot")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	data, err := loadSeed(*file)
	if err != nil {
		log.WithError(err).Fatal("failed to read seed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *toRedis || *resetCart {
		if err := seedRedis(ctx, cfg.Redis, data, *toRedis, *resetCart, log); err != nil {
			log.WithError(err).Fatal("redis seed failed")
		}
	}
	if *toMySQL {
		if err := seedMySQL(ctx, cfg.MySQL, data, log); err != nil {
			log.WithError(err).Fatal("mysql seed failed")
		}
	}
}

func loadSeed(path string) (*seedData, error) {
	raw := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	var data seedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &data, nil
}

func seedRedis(ctx context.Context, cfg config.RedisConfig, data *seedData, stock, reset bool, log logrus.FieldLogger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	if reset {
		if err := rdb.Del(ctx, cfg.CartKey).Err(); err != nil {
			return fmt.Errorf("delete %s: %w", cfg.CartKey, err)
		}
		log.WithField("key", cfg.CartKey).Info("cart snapshot cleared")
	}
	if !stock {
		return nil
	}

	adapter := storage.NewRedisAdapter(rdb, cfg.CartKey)
	for _, s := range data.Stock {
		if err := adapter.SetStock(ctx, s.ProductID, s.Amount); err != nil {
			return err
		}
	}
	log.WithField("count", len(data.Stock)).Info("redis stock seeded")
	return nil
}

func seedMySQL(ctx context.Context, cfg config.MySQLConfig, data *seedData, log logrus.FieldLogger) error {
	if cfg.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is not set")
	}
	dsn, err := storage.MySQLDSN(cfg.DSN)
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	defer db.Close()

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		return err
	}
	for _, p := range data.Products {
		if err := adapter.UpsertProduct(ctx, p); err != nil {
			return err
		}
	}
	for _, s := range data.Stock {
		if err := adapter.SetStock(ctx, s.ProductID, s.Amount); err != nil {
			return err
		}
	}
	log.WithFields(logrus.Fields{
		"products": len(data.Products),
		"stock":    len(data.Stock),
	}).Info("mysql seeded")
	return nil
}

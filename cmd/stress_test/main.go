package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-store/internal/adapter/storage"
	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/core/service"
	"github.com/rl1809/cart-store/internal/logging"
)

const (
	cartKey       = "stress-cart"
	productID     = 999
	initialStock  = 20
	totalRequests = 50
)

// fixedCatalog answers every lookup with the same product so the run only
// depends on Redis.
type fixedCatalog struct{}

func (fixedCatalog) Product(ctx context.Context, id int) (domain.Product, error) {
	return domain.Product{
		ID:    id,
		Title: "Stress Test Sneaker",
		Price: decimal.RequireFromString("99.90"),
	}, nil
}

func main() {
	ctx := context.Background()
	log := logging.New("warn", "text")

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect redis")
	}
	defer rdb.Close()

	// Clear previous run
	rdb.Del(ctx, cartKey)

	redisAdapter := storage.NewRedisAdapter(rdb, cartKey)
	if err := redisAdapter.SetStock(ctx, productID, initialStock); err != nil {
		log.WithError(err).Fatal("failed to set stock")
	}

	cartService := service.NewCartService(ctx, redisAdapter, fixedCatalog{}, redisAdapter, nil, log)

	var published atomic.Int32
	unsubscribe := cartService.Subscribe(func(domain.Cart) { published.Add(1) })
	defer unsubscribe()

	var successCount, exceededCount, otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := cartService.AddItem(ctx, productID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrStockExceeded):
				exceededCount.Add(1)
			default:
				otherCount.Add(1)
				log.WithError(err).Warn("unexpected failure")
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	exceeded := exceededCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Stock:            %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Stock Exceeded:   %d\n", exceeded)
	fmt.Printf("Other Failures:   %d\n", otherCount.Load())
	fmt.Printf("Updates Observed: %d\n", published.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && exceeded == totalRequests-initialStock {
		fmt.Printf("PASS: exactly %d adds succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, exceeded)
	}

	// Verify the persisted snapshot
	saved, err := redisAdapter.LoadCart(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load cart")
	}
	if amount := amountOf(saved, productID); amount == initialStock {
		fmt.Printf("PASS: saved cart holds %d units\n", amount)
	} else {
		fmt.Printf("FAIL: expected %d units in saved cart, got %d\n", initialStock, amount)
	}
}

func amountOf(c domain.Cart, id int) int {
	if i := c.Find(id); i >= 0 {
		return c[i].Amount
	}
	return 0
}

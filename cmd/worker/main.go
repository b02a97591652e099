package main

import (
	"context"
	"log"
	"time"

	"blinkpay/internal/clock"
	"blinkpay/internal/config"
	"blinkpay/internal/db"
	"blinkpay/internal/ledger"
	"blinkpay/internal/services"
	"blinkpay/internal/store"
	"blinkpay/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	chargeSvc := &services.ChargeService{
		Pool:    pool,
		Deriver: ledger.RefDeriver{Prefix: cfg.Ledger.RefPrefix},
		Clock:   clock.System{},
	}

	w := &worker.Worker{
		Store:     store.New(pool),
		Charges:   chargeSvc,
		Clock:     clock.System{},
		Interval:  time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
		BatchSize: cfg.Worker.BatchSize,
	}

	log.Printf("worker started (interval=%ds batch=%d)", cfg.Worker.IntervalSeconds, cfg.Worker.BatchSize)
	w.Run(ctx)
}

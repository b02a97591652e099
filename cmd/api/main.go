package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blinkpay/internal/clock"
	"blinkpay/internal/config"
	"blinkpay/internal/db"
	"blinkpay/internal/events"
	internalhttp "blinkpay/internal/http"
	"blinkpay/internal/ledger"
	"blinkpay/internal/services"
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

	hub := events.NewHub()
	deriver := ledger.RefDeriver{Prefix: cfg.Ledger.RefPrefix}
	requestSvc := &services.RequestService{
		Pool:    pool,
		Deriver: deriver,
		Clock:   clock.System{},
		Events:  hub,
	}
	chargeSvc := &services.ChargeService{
		Pool:    pool,
		Deriver: deriver,
		Clock:   clock.System{},
		Events:  hub,
	}

	h := internalhttp.NewHandler(requestSvc, chargeSvc)
	srv := internalhttp.NewServer(h, hub)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

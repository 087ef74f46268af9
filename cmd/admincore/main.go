package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/config"
	"github.com/Excel18-coder/vconect-sub001/internal/server"
)

func main() {
	cfg := config.Load()
	srv := server.New(cfg)
	defer srv.Logger.Sync()

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	if err := srv.Worker.Start(workerCtx); err != nil {
		log.Fatalf("failed to start aggregate worker: %v", err)
	}

	go func() {
		log.Printf("admin-core HTTP server started at %s", cfg.HTTPAddr)
		if err := srv.HTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down admin-core...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.HTTP.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	cancelWorker()
	srv.Worker.Stop()
	srv.DB.Close()
	log.Println("admin-core stopped")
}

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voltaccess.org/internal/access"
	"voltaccess.org/internal/auth"
	"voltaccess.org/internal/config"
	"voltaccess.org/internal/httpapi"
	"voltaccess.org/internal/obs"
	"voltaccess.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	log.SetFlags(0)
	configPath := flag.String("config", os.Getenv("VOLTACCESS_CONFIG"), "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := pg.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth.TokenSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithValiditySpan(cfg.Auth.TokenValidity()),
	)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}
	resolver, err := auth.NewResolver(store, tokens)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	accessSvc, err := access.NewService(store, store, store)
	if err != nil {
		log.Fatalf("access service: %v", err)
	}

	api := httpapi.New(
		httpapi.ReadyProbe{DB: store.DB()},
		version,
		resolver,
		store,
		accessSvc,
		httpapi.WithCORSOrigins(cfg.CORS.AllowedOrigins),
		httpapi.WithRateLimit(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond),
		httpapi.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Printf("Starting voltaccess-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

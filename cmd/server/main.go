package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vcms-io/vcms/internal/config"
	"github.com/vcms-io/vcms/internal/es"
	"github.com/vcms-io/vcms/internal/handlers"
	"github.com/vcms-io/vcms/internal/logging"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
	"github.com/vcms-io/vcms/internal/mykafka"
	"github.com/vcms-io/vcms/internal/seed"
	httpserver "github.com/vcms-io/vcms/internal/transport/http"
)

const certificateIndex = "certificate"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.APP_LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := seed.EnsureAdmin(db, logger); err != nil {
		log.Fatalf("admin bootstrap: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	accessTTL := time.Duration(configuration.ACCESS_TOKEN_TTL_MIN) * time.Minute

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatalf("kafka init: %v", err)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	var searchClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		searchClient, err = es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init: %v", err)
		}
	} else {
		logger.Warn("ES_URL not set, certificate search disabled")
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(httpserver.RequestLogger(logger))

	tokenMW := &authmw.TokenMiddleware{DB: db, JWTSecret: jwtSecret}
	deps := httpserver.Deps{
		DB:      db,
		TokenMW: tokenMW,
		AuthHandler: &handlers.AuthHandler{
			DB: db, JWTSecret: jwtSecret, AccessTTL: accessTTL, Producer: prod,
		},
		UserHandler: &handlers.UserHandler{DB: db},
		CertificateHandler: &handlers.CertificateHandler{
			DB: db, Producer: prod, ES: searchClient, ESIndex: certificateIndex,
		},
		DashboardHandler: &handlers.DashboardHandler{DB: db},
		SearchHandler:    &handlers.SearchHandler{DB: db, ES: searchClient, Index: certificateIndex},
		HealthHandler:    &handlers.HealthHandler{DB: db},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.APP_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

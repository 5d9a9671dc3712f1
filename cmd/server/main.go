package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"circdesk/internal/auth"
	"circdesk/internal/config"
	"circdesk/internal/handlers"
	"circdesk/internal/models"
	"circdesk/internal/repositories"
	"circdesk/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.AutoMigrate(&models.User{}, &models.Book{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	bookStore := repositories.NewBookStore(db)
	userStore := repositories.NewUserStore(db)
	svc := services.NewCirculationService(bookStore, userStore, cfg.Catalog.LoanPeriod())

	if _, err := svc.EnsureAdminUser(); err != nil {
		log.Fatalf("failed to bootstrap admin user: %v", err)
	}

	var blacklist *auth.TokenBlacklist
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		blacklist = auth.NewTokenBlacklist(client)
		log.Printf("[INFO] token blacklist enabled (redis at %s)", cfg.Redis.Addr)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()

	handlers.RegisterRoutes(router, svc, handlers.Options{
		JWTSecret:   cfg.JWT.Secret,
		TokenTTL:    cfg.JWT.TokenTTL,
		Blacklist:   blacklist,
		SearchLimit: cfg.Catalog.SearchLimit,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Starting server on %s", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

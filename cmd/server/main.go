package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/coralbank/backend/internal/database"
	"github.com/coralbank/backend/internal/handlers"
	mW "github.com/coralbank/backend/internal/middleware"
	"github.com/coralbank/backend/internal/services"
	"github.com/coralbank/backend/internal/store"
)

// @title Coral Bank Ledger API
// @version 1.0
// @description Account ledger service: balances and an append-only journal of deposits, withdrawals and transfers
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("store.driver", "STORE_DRIVER")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Pick the ledger store. Postgres is the durable default; the in-memory
	// store keeps the service runnable without a database.
	viper.SetDefault("store.driver", "postgres")
	var ledgerStore store.LedgerStore
	switch driver := viper.GetString("store.driver"); driver {
	case "postgres":
		db := database.InitDatabase()
		defer db.Close()
		ledgerStore = store.NewPostgresStore(db)
	case "memory":
		log.Println("Using in-memory ledger store; state is lost on shutdown")
		ledgerStore = store.NewMemoryStore()
	default:
		log.Fatalf("Unknown store driver %q", driver)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	bankService := services.NewBankService(ledgerStore, redisClient)
	bankHandler := handlers.NewBankHandler(bankService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger UI over the checked-in OpenAPI document
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yaml")
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/accounts/{accountNumber}", bankHandler.GetAccount)
		r.Get("/accounts/{accountNumber}/transactions", bankHandler.ListTransactions)

		r.Post("/accounts/{accountNumber}/transactions/deposits", bankHandler.Deposit)
		r.Get("/accounts/{accountNumber}/transactions/deposits", bankHandler.ListDeposits)

		r.Post("/accounts/{accountNumber}/transactions/withdrawals", bankHandler.Withdraw)
		r.Get("/accounts/{accountNumber}/transactions/withdrawals", bankHandler.ListWithdrawals)

		r.Post("/accounts/{accountNumber}/transactions/transfers", bankHandler.Transfer)
		r.Get("/accounts/{accountNumber}/transactions/transfers", bankHandler.ListTransfers)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

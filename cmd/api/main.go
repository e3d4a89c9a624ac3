package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/config"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/handler"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/middleware"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/repository"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/service"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
)

// @title Payment Reconciliation API
// @version 1.0
// @description Ingests bank and card statement exports, matches incoming payments against open proformas and maintains derived paid totals.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel)
	logger.GetLogger().Info("Starting Payment Reconciliation Service")

	// Without a configured database the service still serves parse-only
	// endpoints; everything storage-backed answers with a disabled result.
	var txRepo repository.TransactionRepository
	var proformaRepo repository.ProformaRepository
	if cfg.Database.Enabled() {
		db, err := connectDB(cfg.Database)
		if err != nil {
			logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		logger.GetLogger().Info("Database connection established")

		txRepo = repository.NewTransactionRepository(db)
		proformaRepo = repository.NewProformaRepository(db)
	} else {
		logger.GetLogger().Warn("Database not configured, running storage-disabled")
	}

	txService := service.NewTransactionService(txRepo)
	ingestionService := service.NewIngestionService(txRepo, proformaRepo)
	reviewService := service.NewReviewService(txRepo, proformaRepo)

	statementHandler := handler.NewStatementHandler(ingestionService)
	txHandler := handler.NewTransactionHandler(txService, reviewService)
	proformaHandler := handler.NewProformaHandler(reviewService)

	router := setupRouter(statementHandler, txHandler, proformaHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.GetLogger().WithField("address", addr).Info("Server starting")

	if err := router.Run(addr); err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to start server")
	}
}

func connectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func setupRouter(statementHandler *handler.StatementHandler, txHandler *handler.TransactionHandler, proformaHandler *handler.ProformaHandler) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		statements := v1.Group("/statements")
		{
			statements.POST("/import", statementHandler.Import)
			statements.POST("/parse", statementHandler.Parse)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.GET("", txHandler.List)
			transactions.GET("/:id", txHandler.Get)
			transactions.DELETE("/:id", txHandler.Delete)
			transactions.POST("/:id/approve", txHandler.Approve)
			transactions.POST("/:id/clear", txHandler.Clear)
			transactions.POST("/:id/refund", txHandler.Refund)
		}

		proformas := v1.Group("/proformas")
		{
			proformas.POST("/:id/recompute", proformaHandler.Recompute)
		}
	}

	return router
}

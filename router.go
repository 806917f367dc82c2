package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/audit"
	"github.com/kendall-kelly/restaurant-pos-api/authz"
	"github.com/kendall-kelly/restaurant-pos-api/config"
	"github.com/kendall-kelly/restaurant-pos-api/controllers"
	"github.com/kendall-kelly/restaurant-pos-api/middleware"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"github.com/kendall-kelly/restaurant-pos-api/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the wired services the HTTP layer is built from
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	users    *services.UserService
	handlers *controllers.Handlers
}

func newApp(cfg *config.Config, logger *zap.Logger, db *gorm.DB, recorder audit.Recorder, userInfo services.UserInfoProvider) *app {
	st := store.New(db)
	policy := authz.DefaultPolicy()

	users := services.NewUserService(st, userInfo, logger)
	orders := services.NewOrderService(st, policy, recorder, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		users:  users,
		handlers: &controllers.Handlers{
			Users:    controllers.NewUserController(users, logger),
			Orders:   controllers.NewOrderController(orders, logger),
			Payments: controllers.NewPaymentController(services.NewPaymentService(st, policy, recorder, logger), logger),
			Sessions: controllers.NewCashSessionController(services.NewCashSessionService(st, policy, recorder, logger), logger),
			Views:    controllers.NewViewController(services.NewViewService(orders, st), logger),
		},
	}
}

// router builds the engine. authenticate validates bearer tokens; main passes
// EnsureValidToken.
func (a *app) router(authenticate gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(a.logger))
	router.Use(cors.New(corsConfig(a.cfg)))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus(a.db))
	}
	a.handlers.Register(v1, authenticate, middleware.RequirePrincipal(a.users))

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range cfg.CORSAllowedOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = cfg.CORSAllowedOrigins
	if len(c.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Restaurant POS API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to get database instance",
				},
			})
			return
		}

		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_CONNECTION_ERROR",
					"message": "Database connection failed",
				},
			})
			return
		}

		query := "SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename"
		if db.Dialector.Name() == "sqlite" {
			query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
		}

		var tables []string
		if err := db.WithContext(c.Request.Context()).Raw(query).Scan(&tables).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_QUERY_ERROR",
					"message": "Failed to query tables",
				},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Database connected",
			"driver":  db.Dialector.Name(),
			"tables":  tables,
		})
	}
}

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the routes onto a gin engine.
func NewRouter(h *BacktestHandler, log *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(errorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "stored_runs": h.store.len()})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/backtest", h.RunBacktest)
		api.GET("/backtest/:id", h.GetBacktest)
		api.GET("/backtest/:id/csv", h.GetBacktestCSV)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: "NOT_FOUND", Message: "Not found"}})
	})
	return router
}

// NewServer wraps handler with CORS for allowedOrigins.
func NewServer(port int, allowedOrigins []string, handler http.Handler) *http.Server {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           c.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}

// errorHandler turns panics into a JSON 500.
func errorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		message := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			message = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL_ERROR", Message: message},
		})
	})
}

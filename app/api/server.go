package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipotekakrym/blogpub/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/sitemap.xml", handler.GetSitemap)
	r.GET("/health", handler.GetHealth)

	// Admin endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/articles", handler.APIListArticles)
			api.PUT("/articles/:id/publish", handler.APISetPublishOverride)
			api.PUT("/articles/:id/content", handler.APISetContentOverride)
			api.DELETE("/articles/:id/overrides", handler.APIClearOverrides)
			api.POST("/sitemap/regenerate", handler.APIRegenerateSitemap)
			api.GET("/sitemap/stats", handler.APIGetSitemapStats)
			api.POST("/import", handler.APIImportFeed)
		}
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"sitemap": "/sitemap.xml",
			"health":  "/health",
		}

		if apiAccessKey != "" {
			endpoints["articles"] = "/api/articles (requires X-API-Key header)"
			endpoints["publish"] = "/api/articles/<id>/publish (PUT, requires X-API-Key header)"
			endpoints["content"] = "/api/articles/<id>/content (PUT, requires X-API-Key header)"
			endpoints["overrides"] = "/api/articles/<id>/overrides (DELETE, requires X-API-Key header)"
			endpoints["regenerate"] = "/api/sitemap/regenerate (POST, requires X-API-Key header)"
			endpoints["stats"] = "/api/sitemap/stats (requires X-API-Key header)"
			endpoints["import"] = "/api/import (POST, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "BlogPub",
			"version":     cfg.Get().Version,
			"description": "Blog publication service with visibility resolution, sitemap generation, and publication notifications",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/frameworks"
	"portfolio-mapper-backend/internal/llm"
	"portfolio-mapper-backend/internal/llm/gemini"
	"portfolio-mapper-backend/internal/mappings"
	"portfolio-mapper-backend/internal/shared/metrics"
	"portfolio-mapper-backend/internal/shared/server/middleware"
	"portfolio-mapper-backend/internal/shared/telemetry"
)

const llmCallTimeout = 120 * time.Second

// NewRouter loads the framework library and catalog, wires the mapping
// service, and returns a ready-to-run engine. Loader failures are fatal.
func NewRouter(cfg config.Config) (*gin.Engine, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	library, err := frameworks.LoadLibrary(cfg.FrameworksDir)
	if err != nil {
		return nil, err
	}
	catalog, err := config.LoadCatalog(cfg.ConfigDir)
	if err != nil {
		return nil, err
	}

	var client llm.Client
	if cfg.GeminiAPIKey == "" {
		// Without a key the server still starts so config and data can be
		// inspected; mapping calls fail with a transport error.
		telemetry.Warn("gemini.disabled", map[string]any{
			"reason": "GEMINI_API_KEY is not set",
		})
	} else {
		geminiClient, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, catalog.Gemini)
		if err != nil {
			return nil, err
		}
		client = geminiClient
	}

	service := &mappings.Service{
		Library:     library,
		Catalog:     catalog,
		LLM:         client,
		Sessions:    mappings.NewStore(),
		Validator:   &mappings.Validator{},
		CallTimeout: llmCallTimeout,
	}
	handler := &mappings.Handler{Service: service}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"MAPPING_START": {Rate: 0.2, Burst: 3},
			"READ":          {Rate: 5, Burst: 20},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && strings.HasSuffix(c.FullPath(), "/mappings") {
				return "MAPPING_START"
			}
			return "READ"
		},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"frameworks": len(library),
			"llm":        client != nil,
		})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	handler.Register(api)

	return r, nil
}

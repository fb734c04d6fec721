package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/shoply/backend/internal/infrastructure/logger"
	"github.com/shoply/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar registers a group of routes under the versioned API prefix
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Options configures the router
type Options struct {
	Logger        *zap.Logger
	EnableTracing bool
	ServiceName   string
}

// New builds the gin engine with the standard middleware chain and registers
// all route groups under /api/v1.
func New(opts Options, registrars ...RouteRegistrar) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	if opts.EnableTracing {
		engine.Use(otelgin.Middleware(opts.ServiceName))
	}
	engine.Use(logger.GinMiddleware(opts.Logger))
	engine.Use(logger.Recovery(opts.Logger))

	api := engine.Group("/api/v1")
	for _, registrar := range registrars {
		registrar.RegisterRoutes(api)
	}
	return engine
}

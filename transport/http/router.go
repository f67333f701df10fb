package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/pqauth/service"
)

// RouterOption configures the router
type RouterOption func(*routerConfig)

type routerConfig struct {
	demoSigner NonceSigner
}

// WithDemoSigner enables the /debug/sign endpoint
func WithDemoSigner(signer NonceSigner) RouterOption {
	return func(cfg *routerConfig) {
		cfg.demoSigner = signer
	}
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, logger *zap.Logger, opts ...RouterOption) *gin.Engine {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(RequestLogger(logger.Named("http")), gin.Recovery())

	handlers := NewAuthHandlers(authService)

	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.GET("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
		auth.GET("/key", handlers.Key)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	if cfg.demoSigner != nil {
		debug := &DebugHandlers{signer: cfg.demoSigner}
		router.GET("/debug/sign", debug.Sign)
	}

	return router
}

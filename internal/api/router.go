package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opinio/market/internal/api/handler"
	"github.com/opinio/market/internal/api/middleware"
	"github.com/opinio/market/internal/config"
	"github.com/opinio/market/internal/repository"
	"github.com/opinio/market/internal/service"
	"github.com/opinio/market/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc    *service.AuthService
	EventSvc   *service.EventService
	TradeSvc   *service.TradeService
	UserRepo   *repository.UserRepository
	WalletRepo *repository.WalletRepository
	Hub        *ws.Hub
	Cfg        *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.UserRepo, deps.WalletRepo)
	eventH := handler.NewEventHandler(deps.EventSvc)
	tradeH := handler.NewTradeHandler(deps.TradeSvc)
	walletH := handler.NewWalletHandler(deps.WalletRepo)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10)  // 10 req/s per IP for auth endpoints
	tradeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for trade endpoints

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Events (public) ──────────────────────────────────────────────────
		events := api.Group("/events")
		{
			events.GET("", eventH.ListEvents)
			events.GET("/:id", eventH.GetByID)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me", userH.Me)

			// Trades
			trades := authed.Group("/trades")
			trades.Use(tradeRL)
			{
				trades.POST("", tradeH.PlaceTrade)
				trades.GET("/my", tradeH.GetMyTrades)
				trades.GET("/:id", tradeH.GetTradeByID)
			}

			// Wallet
			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletH.GetBalance)
				wallet.GET("/transactions", walletH.GetTransactions)
			}

			// ── Admin (role guard) ────────────────────────────────────────────
			admin := authed.Group("/admin")
			admin.Use(middleware.AdminMiddleware())
			{
				admin.POST("/events", eventH.CreateEvent)
				admin.POST("/events/:id/open", eventH.OpenEvent)
				admin.POST("/events/:id/resolve", eventH.ResolveEvent)
				admin.DELETE("/events/:id", eventH.DeleteEvent)
				admin.GET("/events/:id/trades", eventH.GetEventTrades)
				admin.GET("/trades", tradeH.ListTrades)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := map[string]bool{}
	for _, o := range strings.Split(cfg.WS.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// NewServer builds the HTTP server: REST API, health check and the
// websocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg, logger)))

	api := NewAPIHandlers(authService, st, logger)
	guilds := NewGuildHandlers(st, hub, logger)
	parties := NewPartyHandlers(st, hub, logger)

	public := router.Group("/api")
	public.POST("/register", api.Register)
	public.POST("/login", api.Login)

	protected := router.Group("/api")
	protected.Use(AuthMiddleware(authService, logger))

	protected.GET("/me", api.Me)

	protected.POST("/guilds", guilds.CreateGuild)
	protected.PUT("/guilds/:id/motd", guilds.SetMOTD)
	protected.POST("/guilds/:id/join", guilds.JoinGuild)
	protected.POST("/guilds/leave", guilds.LeaveGuild)
	protected.DELETE("/guilds/:id", guilds.DisbandGuild)

	protected.POST("/parties", parties.CreateParty)
	protected.POST("/parties/:id/join", parties.JoinParty)
	protected.POST("/parties/leave", parties.LeaveParty)
	protected.DELETE("/parties/:id", parties.DisbandParty)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

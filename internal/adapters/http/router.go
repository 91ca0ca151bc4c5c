// Package http is the gin adapter: routing, request binding and the
// mapping from domain failures to status codes.
package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"parley/internal/adapters/signal"
	"parley/internal/app"
	"parley/internal/auth"
	"parley/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, authSvc *auth.Service, tokens *auth.TokenManager, rooms *app.Rooms, ws *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	ah := &authHandlers{auth: authSvc}
	rh := &roomHandlers{rooms: rooms}

	api := r.Group("/api")

	api.POST("/auth/register", ah.register)
	api.POST("/auth/login", ah.login)

	authed := api.Group("", auth.Middleware(tokens))

	roomsGroup := authed.Group("/rooms")
	roomsGroup.GET("", rh.list)
	roomsGroup.POST("", rh.create)
	roomsGroup.GET("/:roomId", rh.get)
	roomsGroup.PATCH("/:roomId", rh.update)
	roomsGroup.POST("/:roomId/join", rh.join)
	roomsGroup.GET("/:roomId/pending", rh.pending)
	roomsGroup.POST("/:roomId/approve/:userId", rh.approve)
	roomsGroup.POST("/:roomId/reject/:userId", rh.reject)
	roomsGroup.DELETE("/:roomId/members/:userId", rh.removeMember)
	roomsGroup.POST("/:roomId/ban/:userId", rh.ban)
	roomsGroup.PATCH("/:roomId/transfer-admin", rh.transferAdmin)

	authed.GET("/messages/:room", rh.history)

	api.GET("/ws", func(c *gin.Context) {
		ws.HandleWS(ctx, c)
	})

	return r
}

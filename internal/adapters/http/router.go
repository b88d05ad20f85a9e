package http

import (
	"context"
	"net/http"

	"github.com/dkeye/camrelay/internal/adapters/signal"
	"github.com/dkeye/camrelay/internal/adapters/stream"
	"github.com/dkeye/camrelay/internal/app/orch"
	"github.com/dkeye/camrelay/internal/config"
	"github.com/dkeye/camrelay/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "client_token"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware pins a stable token on each browser through the
// signed session cookie, so viewer reconnects can be correlated in logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	device := stream.NewHandler(o, cfg.MaxOfferBytes, cfg.SendBuffer)
	r.POST("/whip", device.HandleOffer)

	ctrl := signal.NewSignalWSController(o)
	ctrl.ReadLimit = cfg.ReadLimit
	ctrl.PingPeriod = cfg.PingPeriod
	ctrl.WriteWait = cfg.WriteWait
	ctrl.SendBuffer = cfg.SendBuffer
	ctrl.Limiter = signal.NewMessageRateLimiter(cfg.RateLimit, cfg.RateInterval)

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, Secure: cfg.TLSEnabled()})
	viewer := r.Group("/", sessions.Sessions("CamRelaySession", store), ClientTokenMiddleware())
	wsHandler := func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client_token", c.GetString(clientTokenKey)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	}
	viewer.GET("/", wsHandler)
	viewer.GET("/ws", wsHandler)

	api := r.Group("/api")
	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": o.Registry.Snapshot()})
	})

	r.GET("/metrics", gin.WrapH(metrics.PrometheusHandler(o.Metrics)))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not Found")
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

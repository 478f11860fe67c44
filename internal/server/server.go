// Package server exposes the game core over HTTP and websockets.
package server

import (
	"context"
	"net/http"
	"time"

	"da-vinci/internal/analytics"
	"da-vinci/internal/config"
	"da-vinci/internal/identity"
	"da-vinci/internal/judge"
	"da-vinci/internal/logger"
	"da-vinci/internal/matchmaking"
	"da-vinci/internal/room"
	"da-vinci/internal/schedule"
	"da-vinci/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Deps struct {
	Config   config.Config
	Store    store.Store
	Queue    *matchmaking.Queue
	Rooms    *room.Service
	Judge    *judge.Service
	Reports  *analytics.Reports
	Gate     *schedule.Gate
	Verifier *identity.Verifier
	Gatherer prometheus.Gatherer
}

type Server struct {
	cfg      config.Config
	store    store.Store
	queue    *matchmaking.Queue
	rooms    *room.Service
	judge    *judge.Service
	reports  *analytics.Reports
	gate     *schedule.Gate
	verifier *identity.Verifier
	gatherer prometheus.Gatherer
	limiter  *rateLimiter
	ws       *wsHub
	ctx      context.Context
	cancel   context.CancelFunc
	log      zerolog.Logger
}

func New(deps Deps) *Server {
	registerValidators()
	ctx, cancel := context.WithCancel(context.Background())
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      deps.Config,
		store:    deps.Store,
		queue:    deps.Queue,
		rooms:    deps.Rooms,
		judge:    deps.Judge,
		reports:  deps.Reports,
		gate:     deps.Gate,
		verifier: deps.Verifier,
		gatherer: gatherer,
		limiter:  newRateLimiter(deps.Config.JudgeRatePerMinute),
		ws:       newWSHub(ctx),
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.With("server"),
	}
}

// Run prunes idle rate limiters until ctx ends, then closes every
// websocket pump.
func (s *Server) Run(ctx context.Context) error {
	defer s.cancel()
	s.limiter.cleanupLoop(ctx)
	return ctx.Err()
}

func (s *Server) Close() {
	s.cancel()
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), cors.New(s.corsConfig()))

	router.GET("/healthz", func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api", s.requireAuth)
	api.GET("/me", s.handleMe)

	api.POST("/queue", s.handleJoinQueue)
	api.DELETE("/queue", s.handleLeaveQueue)
	api.GET("/queue", s.handleListQueue)

	api.GET("/rooms/mine", s.handleMyRoom)
	api.GET("/rooms/:roomId", s.handleGetRoom)
	api.POST("/rooms/:roomId/start", s.handleStart)
	api.POST("/rooms/:roomId/ready", s.handleReady)
	api.POST("/rooms/:roomId/difficulty", s.handleDifficulty)
	api.PUT("/rooms/:roomId/canvas", s.handleCanvas)
	api.POST("/rooms/:roomId/end-turn", s.handleEndTurn)
	api.POST("/rooms/:roomId/leave", s.handleLeaveRoom)
	api.GET("/rooms/:roomId/chat", s.handleListChat)
	api.POST("/rooms/:roomId/chat", s.handleSendChat)
	api.GET("/rooms/:roomId/secret", s.handleSecret)

	api.POST("/judge", s.limit, s.handleJudge)

	api.GET("/leaderboard", s.handleLeaderboard)
	api.GET("/analytics/daily", s.handleDailyAnalytics)
	api.GET("/analytics/words/hardest", s.handleHardestWords)
	api.GET("/analytics/words/:word", s.handleWordAnalytics)
	api.GET("/logs/recent", s.handleRecentLogs)

	api.GET("/schedule", s.handleGetSchedule)
	api.PUT("/schedule", s.requireAdmin, s.handlePutSchedule)

	ws := router.Group("/ws", s.requireAuth)
	ws.GET("/queue", s.handleQueueWebsocket)
	ws.GET("/rooms/:roomId", s.handleRoomWebsocket)
	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "Upgrade", "Connection",
			"Sec-WebSocket-Key", "Sec-WebSocket-Version", "Sec-WebSocket-Protocol"},
		MaxAge: 12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		event := s.log.Info()
		if status >= http.StatusInternalServerError {
			event = s.log.Error()
		} else if c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics" {
			event = s.log.Debug()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

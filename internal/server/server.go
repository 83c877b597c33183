package server

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"bulls-cows/internal/config"
	"bulls-cows/internal/rules"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	db        *gorm.DB
	cfg       config.Config
	ws        *wsHub
	relay     *redisRelay
	limiter   *rateLimiter
	tokens    *tokenVerifier
	clock     func() time.Time
	firstSeat func() int
	roomCode  func() string
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		db:        conn,
		cfg:       cfg,
		ws:        newWSHub(),
		limiter:   newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		tokens:    newTokenVerifier(cfg.AuthJWTSecret),
		clock:     time.Now,
		firstSeat: coinFlip,
		roomCode:  rules.NewRoomCode,
	}
}

// EnableRelay routes room events through Redis pub/sub so every instance
// subscribed to the same Redis fans them out to its own websocket clients.
// The subscriber runs until ctx is cancelled.
func (s *Server) EnableRelay(ctx context.Context, client *redis.Client) {
	s.relay = newRedisRelay(client, s.ws)
	go s.relay.Run(ctx)
}

func (s *Server) Handler() http.Handler {
	registerValidators()

	router := gin.New()
	router.Use(requestLogger(), recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	router.GET("/healthz", s.handleHealth)
	router.GET("/ws/rooms/:code", s.optionalUser(), s.handleRoomWebsocket)

	api := router.Group("/api")
	api.GET("/watch/:code/state", s.rateLimit(), s.handleWatchState)
	api.POST("/rooms/:code/music", s.optionalUser(), s.rateLimit(), s.handleMusic)

	rooms := api.Group("/rooms", s.requireUser(), s.rateLimit())
	rooms.POST("/create", s.handleCreateRoom)
	rooms.POST("/join", s.handleJoinRoom)
	rooms.POST("/:code/heartbeat", s.handleHeartbeat)
	rooms.GET("/:code/state", s.handleRoomState)
	rooms.POST("/:code/settings", s.handleSettings)
	rooms.POST("/:code/chat", s.handleChat)
	rooms.GET("/:code/chat", s.handleChatHistory)

	games := api.Group("/games", s.requireUser(), s.rateLimit())
	games.POST("/:gameId/secret", s.handleSecret)
	games.POST("/:gameId/guess", s.handleGuess)
	games.POST("/:gameId/rematch-vote", s.handleRematchVote)

	return router
}

// now is the single time source for persisted timestamps. Values are kept
// at microsecond precision so they compare equal after a store round trip.
func (s *Server) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func coinFlip() int {
	if rand.IntN(2) == 0 {
		return rules.SeatOne
	}
	return rules.SeatTwo
}

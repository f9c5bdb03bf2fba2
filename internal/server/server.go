package server

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

const maxMessageSize = 1024

//go:embed web/index.html
var indexHTML []byte

// Game is the board the server exposes. *hub.Hub implements it.
type Game interface {
	State(ctx context.Context) (controller.Snapshot, error)
	Move(ctx context.Context, row, col int) (controller.Snapshot, error)
	Reset(ctx context.Context) (controller.Snapshot, error)
	SetMode(ctx context.Context, mode controller.Mode) (controller.Snapshot, error)
	SetDifficulty(ctx context.Context, d bot.Difficulty) (controller.Snapshot, error)
	Serve(ctx context.Context, conn hub.Connection)
}

type Server struct {
	game     Game
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

func NewServer(g Game) *Server {
	s := &Server{
		game: g,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.routes()
	return s
}

// Engine returns the HTTP handler.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), traceRequests())

	r.GET("/", s.handleIndex)
	r.GET("/ws", s.handleWebSocket)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/state", s.getState)
		api.POST("/moves", s.postMove)
		api.POST("/reset", s.postReset)
		api.PUT("/mode", s.putMode)
		api.PUT("/difficulty", s.putDifficulty)
	}
	return r
}

// traceRequests wraps every request in a span and logs it once it completes.
func traceRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), "server."+c.Request.Method+" "+route, trace.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		for _, err := range c.Errors {
			span.RecordError(err.Err)
		}
		slog.DebugContext(ctx, "Handled request", "method", c.Request.Method, "route", route, "status", status, "latency", time.Since(start))
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// handleWebSocket upgrades the connection and hands it to the game until the
// viewer goes away.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
	))
	defer span.End()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	s.game.Serve(ctx, conn)
}

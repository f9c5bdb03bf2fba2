package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ctchen222/tictactoe/internal/api/response"
	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/internal/hub"

	"github.com/gin-gonic/gin"
)

type moveRequest struct {
	Row *int `json:"row" binding:"required"`
	Col *int `json:"col" binding:"required"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type difficultyRequest struct {
	Difficulty string `json:"difficulty" binding:"required"`
}

func (s *Server) getState(c *gin.Context) {
	s.respond(c, s.game.State)
}

func (s *Server) postMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(c, func(ctx context.Context) (controller.Snapshot, error) {
		return s.game.Move(ctx, *req.Row, *req.Col)
	})
}

func (s *Server) postReset(c *gin.Context) {
	s.respond(c, s.game.Reset)
}

func (s *Server) putMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(c, func(ctx context.Context) (controller.Snapshot, error) {
		return s.game.SetMode(ctx, controller.Mode(req.Mode))
	})
}

func (s *Server) putDifficulty(c *gin.Context) {
	var req difficultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(c, func(ctx context.Context) (controller.Snapshot, error) {
		return s.game.SetDifficulty(ctx, bot.Difficulty(req.Difficulty))
	})
}

func (s *Server) respond(c *gin.Context, call func(ctx context.Context) (controller.Snapshot, error)) {
	snapshot, err := call(c.Request.Context())
	if err != nil {
		err = withStatus(err)
		slog.WarnContext(c.Request.Context(), "Request failed", "path", c.Request.URL.Path, "error", err)
		response.FailureResponse(c, err)
		return
	}
	response.SuccessResponse(c, snapshot)
}

// withStatus attaches the HTTP status for the domain errors.
func withStatus(err error) error {
	switch {
	case errors.Is(err, controller.ErrInvariant):
		return err
	case errors.Is(err, game.ErrIllegalMove), errors.Is(err, hub.ErrBusy):
		return response.NewError(http.StatusConflict, err)
	case errors.Is(err, controller.ErrUnknownMode), errors.Is(err, bot.ErrUnknownDifficulty):
		return response.NewError(http.StatusBadRequest, err)
	case errors.Is(err, hub.ErrClosed):
		return response.NewError(http.StatusServiceUnavailable, err)
	default:
		return err
	}
}

package proto

import (
	"errors"

	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/internal/game"
	"github.com/ctchen222/tictactoe/internal/validator"
)

// Client message types.
const (
	TypeMove       = "move"
	TypeReset      = "reset"
	TypeMode       = "mode"
	TypeDifficulty = "difficulty"
	TypeAck        = "ack"
)

// Server message types.
const (
	TypeState   = "state"
	TypeOutcome = "outcome"
	TypeError   = "error"
)

var ErrMissingPosition = errors.New("move requires a [row, col] position")

// ClientMessage represents a message from the browser to the server.
type ClientMessage struct {
	Type       string `json:"type" validate:"required,oneof=move reset mode difficulty ack"`
	Position   []int  `json:"position,omitempty" validate:"omitempty,len=2"`
	Mode       string `json:"mode,omitempty" validate:"required_if=Type mode"`
	Difficulty string `json:"difficulty,omitempty" validate:"required_if=Type difficulty"`
}

// Validate checks the message shape. Coordinates are range-checked by the board.
func (m ClientMessage) Validate() error {
	if err := validator.Struct(m); err != nil {
		return err
	}
	if m.Type == TypeMove && len(m.Position) != 2 {
		return ErrMissingPosition
	}
	return nil
}

// ServerMessage represents a message from the server to the browser.
type ServerMessage struct {
	Type    string               `json:"type"`
	State   *controller.Snapshot `json:"state,omitempty"`
	Outcome *game.Outcome        `json:"outcome,omitempty"`
	Message string               `json:"message,omitempty"`
}

func NewStateMessage(s controller.Snapshot) *ServerMessage {
	return &ServerMessage{Type: TypeState, State: &s}
}

// NewOutcomeMessage carries the finished game and the text shown to the players.
func NewOutcomeMessage(o game.Outcome) *ServerMessage {
	return &ServerMessage{Type: TypeOutcome, Outcome: &o, Message: o.Message()}
}

func NewErrorMessage(err error) *ServerMessage {
	return &ServerMessage{Type: TypeError, Message: err.Error()}
}

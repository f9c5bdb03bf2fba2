package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/pkg/proto"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// client is one browser watching the board.
type client struct {
	id   string
	conn Connection
}

// Serve registers conn as a viewer and pumps its messages into the hub until
// the connection fails or the hub stops. The hub closes the connection.
func (h *Hub) Serve(ctx context.Context, conn Connection) {
	c := &client{id: uuid.New().String(), conn: conn}
	ctx, span := tracer.Start(ctx, "hub.Serve", trace.WithAttributes(
		attribute.String("client.id", c.id),
	))
	defer span.End()

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-ctx.Done():
		conn.Close()
		return
	}

	defer func() {
		select {
		case h.unregister <- c.id:
		case <-h.done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.InfoContext(ctx, "Viewer connection closed", "client.id", c.id, "error", err)
			return
		}
		h.handleMessage(ctx, c.id, data)
	}
}

// handleMessage decodes one client message and forwards it without waiting for
// the result, so the viewer can still acknowledge an outcome its move caused.
// Errors travel back to the sender through the event loop.
func (h *Hub) handleMessage(ctx context.Context, clientID string, data []byte) {
	ctx, span := tracer.Start(ctx, "hub.handleMessage", trace.WithAttributes(
		attribute.String("client.id", clientID),
	))
	defer span.End()

	var message proto.ClientMessage
	if err := json.Unmarshal(data, &message); err != nil {
		h.replyError(ctx, span, clientID, fmt.Errorf("malformed message: %w", err))
		return
	}
	if err := message.Validate(); err != nil {
		h.replyError(ctx, span, clientID, err)
		return
	}
	span.SetAttributes(attribute.String("message.type", message.Type))

	var apply func(context.Context, *controller.Controller) error
	switch message.Type {
	case proto.TypeMove:
		apply = moveCommand(message.Position[0], message.Position[1])
	case proto.TypeReset:
		apply = resetCommand
	case proto.TypeMode:
		apply = modeCommand(controller.Mode(message.Mode))
	case proto.TypeDifficulty:
		apply = difficultyCommand(bot.Difficulty(message.Difficulty))
	case proto.TypeAck:
		select {
		case h.acks <- clientID:
		case <-h.done:
		case <-ctx.Done():
		}
		return
	}

	if _, err := h.enqueue(ctx, clientID, apply); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Command not delivered")
	}
}

func (h *Hub) replyError(ctx context.Context, span trace.Span, clientID string, err error) {
	slog.WarnContext(ctx, "Invalid message from viewer", "client.id", clientID, "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, "Invalid message")
	h.enqueue(ctx, clientID, func(context.Context, *controller.Controller) error {
		return err
	})
}

func (h *Hub) addClient(ctx context.Context, c *client) {
	h.clients[c.id] = c
	slog.InfoContext(ctx, "Viewer connected", "client.id", c.id, "clients.count", len(h.clients))

	h.sendTo(ctx, c.id, proto.NewStateMessage(h.ctrl.Snapshot()))
	if h.pending != nil {
		h.sendTo(ctx, c.id, proto.NewOutcomeMessage(*h.pending))
	}
}

func (h *Hub) removeClient(ctx context.Context, id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	c.conn.Close()
	slog.InfoContext(ctx, "Viewer disconnected", "client.id", id, "clients.count", len(h.clients))
}

func (h *Hub) closeAll(ctx context.Context) {
	for id := range h.clients {
		h.removeClient(ctx, id)
	}
}

// broadcast sends a message to all connected viewers. Viewers that cannot be
// written to are dropped.
func (h *Hub) broadcast(ctx context.Context, message *proto.ServerMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "Error marshalling message", "type", message.Type, "error", err)
		return
	}
	for id := range h.clients {
		h.write(ctx, id, data)
	}
}

func (h *Hub) sendTo(ctx context.Context, id string, message *proto.ServerMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "Error marshalling message", "type", message.Type, "error", err)
		return
	}
	h.write(ctx, id, data)
}

func (h *Hub) write(ctx context.Context, id string, data []byte) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.WarnContext(ctx, "Error writing to viewer, dropping it", "client.id", id, "error", err)
		h.removeClient(ctx, id)
	}
}

func (h *Hub) ping(ctx context.Context) {
	for id, c := range h.clients {
		if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			slog.WarnContext(ctx, "Failed to send ping to viewer, assuming disconnect", "client.id", id, "error", err)
			h.removeClient(ctx, id)
		}
	}
}

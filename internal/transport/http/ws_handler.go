package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// viewPushInterval is how often the watcher polls the room on behalf of its
// client. The server-side poll drives the lazy phase machine for watched
// rooms.
const viewPushInterval = time.Second

// WSHandler streams room views to connected clients and accepts answer
// submissions inline. Push delivery is best effort; the REST view endpoint
// remains the source of truth.
type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Choice int `json:"choice"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type answerResultPayload struct {
	Status     string `json:"status"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}

// ServeWS upgrades the request and wires the connection into the room.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	player := r.URL.Query().Get("player")
	if code == "" || player == "" {
		http.Error(w, "missing room or player", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// A reconnecting player's name is already present; that is not an error.
	if _, err := h.service.JoinRoom(r.Context(), code, player); err != nil && !errors.Is(err, domain.ErrPlayerNameTaken) {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	view, err := h.service.CurrentView(r.Context(), code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pusherDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(pusherDone)
		ticker := time.NewTicker(viewPushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				view, err := h.service.CurrentView(r.Context(), code)
				if err != nil {
					select {
					case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
					case <-closeSignals:
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "view", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: view}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			outcome, _, err := h.service.SubmitAnswer(r.Context(), code, player, payload.Choice)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			status := "accepted"
			if outcome.Duplicate {
				status = "duplicate"
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResultPayload{
				Status:     status,
				Correct:    outcome.Correct,
				Awarded:    outcome.Awarded,
				TotalScore: outcome.TotalScore,
			}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-pusherDone
	close(send)
	<-writerDone
}

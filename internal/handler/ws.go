package handler

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"messenger-backend/internal/middleware"
	"messenger-backend/internal/model"
	"messenger-backend/internal/service"
)

type WSHandler struct {
	hub          *service.Hub
	messenger    *service.Messenger
	jwtSecret    string
	historyLimit int
}

func NewWSHandler(hub *service.Hub, messenger *service.Messenger, jwtSecret string, historyLimit int) *WSHandler {
	return &WSHandler{hub: hub, messenger: messenger, jwtSecret: jwtSecret, historyLimit: historyLimit}
}

func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		// Validate JWT from query param
		token := c.Query("token")
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "token required"})
		}

		userID, name, role, err := middleware.ParseToken(h.jwtSecret, token)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals("user_id", userID)
		c.Locals("user_name", name)
		c.Locals("user_role", role)
		return websocket.New(h.handleConnection)(c)
	}
	return fiber.ErrUpgradeRequired
}

// wsSession holds the timelines of the conversations this connection has
// joined. The reader goroutine mutates the map, the writer goroutine reads
// it for the live dedupe.
type wsSession struct {
	mu        sync.Mutex
	timelines map[uuid.UUID]*service.Timeline
}

func (s *wsSession) timeline(conversationID uuid.UUID) *service.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timelines[conversationID]
}

func (s *wsSession) set(tl *service.Timeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelines[tl.ConversationID()] = tl
}

func (s *wsSession) remove(conversationID uuid.UUID) *service.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl := s.timelines[conversationID]
	delete(s.timelines, conversationID)
	return tl
}

func (s *wsSession) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tl := range s.timelines {
		tl.Close()
		delete(s.timelines, id)
	}
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	name, _ := c.Locals("user_name").(string)
	role, _ := c.Locals("user_role").(string)
	viewer := service.Viewer{ID: userID, Name: name, Role: role}

	client := service.NewWSClient(c, userID, name, role, 256)
	session := &wsSession{timelines: make(map[uuid.UUID]*service.Timeline)}

	h.hub.Register(client)
	defer func() {
		h.hub.Unregister(client)
		session.closeAll()
	}()

	// Writer goroutine. Live message deliveries pass through the session's
	// timeline first: the channel is at-least-once, the timeline's
	// dedupe-by-identity makes what reaches the socket effectively-once.
	// Stops when the hub drops the client; Send itself is never closed.
	go func() {
		defer c.Close()
		for {
			var ev model.WSEvent
			select {
			case <-client.Done():
				return
			case ev = <-client.Send:
			}
			if ev.Type == "message" {
				var msg model.Message
				if err := json.Unmarshal(ev.Data, &msg); err == nil {
					if tl := session.timeline(msg.ConversationID); tl != nil && !tl.AppendLive(msg) {
						continue
					}
				}
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	// Reader loop
	c.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			break
		}

		// Reset deadline on any message
		c.SetReadDeadline(time.Now().Add(60 * time.Second))

		var event model.WSEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}

		switch event.Type {
		case "ping":
			h.deliver(client, model.WSEvent{Type: "pong"})

		case "join":
			var join model.WSJoin
			if err := json.Unmarshal(event.Data, &join); err != nil {
				continue
			}
			h.handleJoin(client, session, viewer, join.ConversationID)

		case "leave":
			var leave model.WSLeave
			if err := json.Unmarshal(event.Data, &leave); err != nil {
				continue
			}
			if tl := session.remove(leave.ConversationID); tl != nil {
				tl.Close()
			}
			h.hub.Leave(client, leave.ConversationID)

		case "message":
			var out model.WSOutgoing
			if err := json.Unmarshal(event.Data, &out); err != nil {
				continue
			}
			tl := session.timeline(out.ConversationID)
			if tl == nil {
				h.deliver(client, model.NewWSEvent("error", model.WSError{Message: "join the conversation first"}))
				continue
			}
			if _, err := tl.Send(context.Background(), out); err != nil {
				h.deliver(client, model.NewWSEvent("error", model.WSError{Message: err.Error()}))
			}

		default:
			log.Printf("[WS] unknown event type %s from %s", event.Type, userID)
		}
	}
}

// handleJoin subscribes the client to the room, then seeds the timeline from
// a history page. Joining first means live deliveries during the fetch are
// queued and deduped rather than lost; the joined snapshot supersedes
// anything streamed in between.
func (h *WSHandler) handleJoin(client *service.WSClient, session *wsSession, viewer service.Viewer, conversationID uuid.UUID) {
	if session.timeline(conversationID) != nil {
		// Already joined from this connection; re-join is a no-op.
		return
	}

	tl := service.NewTimeline(conversationID, viewer, h.messenger)
	session.set(tl)
	h.hub.Join(client, conversationID)

	history, err := h.messenger.History(context.Background(), viewer, conversationID, nil, h.historyLimit)
	if err != nil {
		session.remove(conversationID)
		tl.Close()
		h.hub.Leave(client, conversationID)
		h.deliver(client, model.NewWSEvent("error", model.WSError{Message: err.Error()}))
		return
	}
	tl.MergeHistory(history)

	h.deliver(client, model.NewWSEvent("joined", model.WSJoined{
		ConversationID: conversationID,
		Messages:       tl.Messages(),
	}))
}

// deliver queues an event for the client without blocking the reader. Once
// the hub has dropped the client (slow consumer, shutdown) this is a no-op:
// the reader goroutine can outlive the drop by one message.
func (h *WSHandler) deliver(client *service.WSClient, ev model.WSEvent) {
	select {
	case <-client.Done():
	case client.Send <- ev:
	default:
	}
}

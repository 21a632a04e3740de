package service

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"messenger-backend/internal/model"
)

// WSClient is one connected viewer session. Send carries typed events; the
// session's writer goroutine owns marshalling and the timeline dedupe.
// Send is never closed: the hub signals a drop by closing done instead, so
// a reader goroutine that races the drop delivers into a dead buffer rather
// than panicking on a closed channel.
type WSClient struct {
	Conn   *websocket.Conn
	UserID string
	Name   string
	Role   string
	Send   chan model.WSEvent

	done chan struct{}
	once sync.Once
}

func NewWSClient(conn *websocket.Conn, userID, name, role string, buffer int) *WSClient {
	return &WSClient{
		Conn:   conn,
		UserID: userID,
		Name:   name,
		Role:   role,
		Send:   make(chan model.WSEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Done is closed when the hub drops the client. Senders and the writer
// goroutine use it as the stop signal.
func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

func (c *WSClient) drop() {
	c.once.Do(func() { close(c.done) })
}

type roomRequest struct {
	client         *WSClient
	conversationID uuid.UUID
}

type roomEvent struct {
	conversationID uuid.UUID
	event          model.WSEvent
}

// Hub routes events to per-conversation rooms. All map mutation happens in
// Run, so broadcasts within one conversation are delivered in the order the
// hub received them. Delivery is at-least-once to currently joined clients;
// nothing is replayed to late joiners.
type Hub struct {
	clients map[*WSClient]bool
	rooms   map[uuid.UUID]map[*WSClient]struct{}

	register   chan *WSClient
	unregister chan *WSClient
	join       chan roomRequest
	leave      chan roomRequest
	broadcast  chan roomEvent

	mu   sync.RWMutex
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*WSClient]bool),
		rooms:      make(map[uuid.UUID]map[*WSClient]struct{}),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		join:       make(chan roomRequest),
		leave:      make(chan roomRequest),
		broadcast:  make(chan roomEvent, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[Hub] %s connected (total: %d)", client.UserID, h.OnlineCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.dropLocked(client)
			}
			h.mu.Unlock()
			log.Printf("[Hub] %s disconnected (total: %d)", client.UserID, h.OnlineCount())

		case req := <-h.join:
			h.mu.Lock()
			if _, ok := h.clients[req.client]; ok {
				room := h.rooms[req.conversationID]
				if room == nil {
					room = make(map[*WSClient]struct{})
					h.rooms[req.conversationID] = room
				}
				// Joining twice (reconnect, second tab re-join) is a no-op:
				// one logical membership per client and conversation.
				room[req.client] = struct{}{}
			}
			h.mu.Unlock()

		case req := <-h.leave:
			h.mu.Lock()
			if room, ok := h.rooms[req.conversationID]; ok {
				delete(room, req.client)
				if len(room) == 0 {
					delete(h.rooms, req.conversationID)
				}
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[ev.conversationID] {
				select {
				case client.Send <- ev.event:
				default:
					// Slow consumer: drop the client, not the hub.
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

// dropLocked removes the client from the hub and every room and closes its
// done channel. Callers hold h.mu.
func (h *Hub) dropLocked(client *WSClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for id, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
	client.drop()
}

func (h *Hub) Shutdown() {
	close(h.done)
}

func (h *Hub) Register(client *WSClient) {
	h.register <- client
}

func (h *Hub) Unregister(client *WSClient) {
	h.unregister <- client
}

// Join subscribes the client to the conversation's room. Idempotent.
func (h *Hub) Join(client *WSClient, conversationID uuid.UUID) {
	h.join <- roomRequest{client: client, conversationID: conversationID}
}

// Leave unsubscribes the client so no further events for the conversation
// reach it.
func (h *Hub) Leave(client *WSClient, conversationID uuid.UUID) {
	h.leave <- roomRequest{client: client, conversationID: conversationID}
}

// BroadcastToConversation queues an event for every client joined to the
// conversation at delivery time.
func (h *Hub) BroadcastToConversation(conversationID uuid.UUID, event model.WSEvent) {
	h.broadcast <- roomEvent{conversationID: conversationID, event: event}
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns how many clients are joined to the conversation.
func (h *Hub) RoomCount(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

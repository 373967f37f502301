package live

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans freshly appended route points out to websocket subscribers of
// a ride. Delivery is best-effort; a slow subscriber drops messages
// rather than blocking the append path.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	RideID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(rideID string) *Client {
	client := &Client{
		RideID: rideID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[rideID] == nil {
		h.clients[rideID] = map[*Client]struct{}{}
	}
	h.clients[rideID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rideClients, ok := h.clients[client.RideID]; ok {
		delete(rideClients, client)
		if len(rideClients) == 0 {
			delete(h.clients, client.RideID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(rideID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[rideID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), redisChannel(rideID), payload).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

// subscribeRedis forwards points published by other instances to local
// subscribers.
func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "rides:*:live")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		rideID := rideIDFromChannel(msg.Channel)
		h.mu.RLock()
		clients := h.clients[rideID]
		h.mu.RUnlock()
		for client := range clients {
			select {
			case client.Send <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func redisChannel(rideID string) string {
	return "rides:" + rideID + ":live"
}

func rideIDFromChannel(ch string) string {
	// rides:{ride}:live
	const prefix = "rides:"
	const suffix = ":live"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}

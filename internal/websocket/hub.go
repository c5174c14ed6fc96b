// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package websocket pushes invalidation events to connected dashboard
// clients: ranking saves and fetch completions, so read-only views refresh
// without polling.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/metrics"
	"github.com/watchdeck/watchdeck/internal/models"
)

// Message types for WebSocket communication
const (
	MessageTypePing                = "ping"
	MessageTypePong                = "pong"
	MessageTypeRankingsInvalidated = "rankings_invalidated"
	MessageTypeFetchCompleted      = "fetch_completed"
)

// Message represents a WebSocket message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// Designed for use under suture supervision: on cancellation all connected
// clients are closed and ctx.Err() is returned.
//
// Priority-based selection keeps behavior predictable when multiple
// channels are ready simultaneously (Go's select picks randomly):
// shutdown first, then client lifecycle, then broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check)
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		// Priority 3: broadcasts, or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// shutdown closes all connected clients in ID order.
func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// broadcastToClients sends a message to all connected clients in ID order.
// Sorting keeps delivery order consistent across runs; a client whose send
// buffer is full is dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WebSocketMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// InvalidationData is sent with rankings_invalidated messages.
type InvalidationData struct {
	ContentType string `json:"content_type"`
	Timestamp   string `json:"timestamp"`
}

// RankingsInvalidated broadcasts a ranking invalidation for a content type.
// Implements the rankings.Notifier interface.
func (h *Hub) RankingsInvalidated(contentType models.ContentType) {
	message := Message{
		Type: MessageTypeRankingsInvalidated,
		Data: InvalidationData{
			ContentType: string(contentType),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		},
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("content_type", string(contentType)).Msg("broadcast channel full, dropping rankings_invalidated message")
	}
}

// FetchCompletedData is sent with fetch_completed messages.
type FetchCompletedData struct {
	ContentType string `json:"content_type"`
	ItemCount   int    `json:"item_count"`
	Timestamp   string `json:"timestamp"`
}

// BroadcastFetchCompleted notifies clients that a dataset was refreshed.
func (h *Hub) BroadcastFetchCompleted(contentType models.ContentType, itemCount int) {
	message := Message{
		Type: MessageTypeFetchCompleted,
		Data: FetchCompletedData{
			ContentType: string(contentType),
			ItemCount:   itemCount,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		},
	}

	select {
	case h.broadcast <- message:
		logging.Info().Int("clients", h.GetClientCount()).Str("content_type", string(contentType)).Msg("broadcast fetch_completed")
	default:
		logging.Warn().Msg("broadcast channel full, dropping fetch_completed message")
	}
}

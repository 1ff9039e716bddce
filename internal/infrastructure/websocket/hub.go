package websocket

import (
	"encoding/json"
	"sync"

	"auction-market/internal/domain"
	"auction-market/pkg/logger"
)

// Hub fans admitted-bid events out to every connection watching an auction.
type Hub struct {
	watchers map[string]map[domain.WatcherConnection]struct{} // auctionID -> connections
	mutex    sync.RWMutex
	log      logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		watchers: make(map[string]map[domain.WatcherConnection]struct{}),
		log:      log,
	}
}

func (h *Hub) RegisterWatcher(auctionID string, conn domain.WatcherConnection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.watchers[auctionID] == nil {
		h.watchers[auctionID] = make(map[domain.WatcherConnection]struct{})
	}
	h.watchers[auctionID][conn] = struct{}{}

	h.log.Debug("Watcher registered", "auction_id", auctionID)
}

func (h *Hub) UnregisterWatcher(auctionID string, conn domain.WatcherConnection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conns, exists := h.watchers[auctionID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.watchers, auctionID)
		}
	}

	h.log.Debug("Watcher unregistered", "auction_id", auctionID)
}

func (h *Hub) BroadcastToAuction(auctionID string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mutex.RLock()
	conns := make([]domain.WatcherConnection, 0, len(h.watchers[auctionID]))
	for conn := range h.watchers[auctionID] {
		conns = append(conns, conn)
	}
	h.mutex.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			// A dead connection is cleaned up by its own read loop.
			h.log.Warn("Failed to send to watcher", "auction_id", auctionID, "error", err)
		}
	}

	return nil
}

// CloseAuction drops every watcher of a finished auction.
func (h *Hub) CloseAuction(auctionID string) error {
	h.mutex.Lock()
	conns := h.watchers[auctionID]
	delete(h.watchers, auctionID)
	h.mutex.Unlock()

	for conn := range conns {
		if err := conn.Close(); err != nil {
			h.log.Warn("Failed to close watcher", "auction_id", auctionID, "error", err)
		}
	}

	return nil
}

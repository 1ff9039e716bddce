package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// WatcherConn wraps a gorilla connection watching one auction. Writes are
// serialized with a mutex because the hub broadcasts from multiple
// goroutines.
type WatcherConn struct {
	conn      *websocket.Conn
	auctionID string
	writeMu   sync.Mutex
	closed    bool
}

func NewWatcherConn(conn *websocket.Conn, auctionID string) *WatcherConn {
	return &WatcherConn{
		conn:      conn,
		auctionID: auctionID,
	}
}

func (c *WatcherConn) Send(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *WatcherConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *WatcherConn) AuctionID() string {
	return c.auctionID
}

// ReadLoop discards inbound frames until the peer disconnects. The feed is
// one-way; reading is only needed to notice the close.
func (c *WatcherConn) ReadLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

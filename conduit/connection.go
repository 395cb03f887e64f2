package conduit

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/gorilla/websocket"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Connection wraps one peer's websocket socket. Writes are serialized
// through a mutex because gorilla/websocket forbids concurrent writers on
// the same connection, and ConduitExec's fan-out writes to many
// connections from the single driver goroutine while each connection's
// own reader goroutine only ever reads.
type Connection struct {
	ID   uint64
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// NewConnection wraps an already-upgraded websocket connection under a
// stable identity used for dedup on repeated Connect messages.
func NewConnection(id uint64, conn *websocket.Conn) *Connection {
	return &Connection{ID: id, conn: conn}
}

// Send writes one Envelope as a JSON text frame.
func (c *Connection) Send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close marks the connection dead and closes the underlying socket. Safe
// to call more than once.
func (c *Connection) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// ReadEnvelope blocks for the next inbound frame from the peer. Called
// only from this connection's dedicated reader goroutine (server.go).
func (c *Connection) ReadEnvelope() (Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return Envelope{}, err
	}
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, err
	}
	return raw.decode()
}

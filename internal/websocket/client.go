// internal/websocket/client.go
// One connected participant (or tab-room screen): reads subscription
// commands off the socket, writes view-change broadcasts onto it.

package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client represents a websocket client connection.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	participantID string
	tournaments   []string
}

// ClientMessage is one inbound command: subscribe/unsubscribe to a
// tournament's view changes, or a keepalive ping.
type ClientMessage struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournament_id,omitempty"`
}

// readPump drains inbound commands until the peer goes away, then
// unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			return
		}

		switch msg.Type {
		case "subscribe":
			if msg.TournamentID != "" {
				c.hub.SubscribeToTournament(c, msg.TournamentID)
				c.confirm("subscribed", msg.TournamentID)
			}
		case "unsubscribe":
			if msg.TournamentID != "" {
				c.hub.UnsubscribeFromTournament(c, msg.TournamentID)
				c.confirm("unsubscribed", msg.TournamentID)
			}
		case "ping":
			c.confirm("pong", "")
		default:
			log.Printf("websocket: unknown message type %q", msg.Type)
		}
	}
}

// writePump forwards hub broadcasts to the peer and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) confirm(messageType, tournamentID string) {
	response := Message{Type: messageType}
	if tournamentID != "" {
		response.Data = map[string]string{"tournament_id": tournamentID}
	}
	if data, err := json.Marshal(response); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}
}

// close cleanly closes the client connection
func (c *Client) close() {
	close(c.send)
}

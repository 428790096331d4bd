package main

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client is the transport half of one player link: a websocket plus a
// buffered outbound queue. All writes happen on the write pump, never while
// the session lock is held.
type Client struct {
	conn *websocket.Conn
	send chan any
	addr string
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan any, 16),
		addr: conn.RemoteAddr().String(),
	}
}

func (c *Client) readPump(s *Session) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("client", c.addr).Msg("recovered client handler panic")
		}
		s.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Str("client", c.addr).Err(err).Msg("malformed message")
			s.Send(c, ErrorMessage{Action: "error", Reason: "invalid JSON"})
			continue
		}

		s.HandleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

package websocket

import (
	"time"

	fws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/trentd187/escape-room/internal/middleware"
	"github.com/trentd187/escape-room/internal/protocol"
)

// Dispatcher receives decoded inbound events. The session coordinator implements it.
type Dispatcher interface {
	Dispatch(connID string, msg any) bool
	Disconnect(connID string)
}

// Options tunes liveness and flow control for every connection.
type Options struct {
	Origins        []string
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	EventRate      float64
	EventBurst     int
}

// Handler returns the fiber handler that upgrades a request into a protocol connection.
// Identity stored in c.Locals by middleware.Identify is carried onto the connection.
func Handler(hub *Hub, d Dispatcher, opts Options) fiber.Handler {
	return fws.New(func(conn *fws.Conn) {
		hub.serve(conn, d, opts)
	}, fws.Config{Origins: opts.Origins})
}

// RequireUpgrade rejects plain HTTP requests on the websocket route.
func RequireUpgrade(c *fiber.Ctx) error {
	if fws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// serve owns one connection for its whole life. It returns once the socket is dead,
// after the coordinator has been told about the disconnect.
func (h *Hub) serve(conn *fws.Conn, d Dispatcher, opts Options) {
	client := NewClient(uuid.NewString(), opts.SendBuffer, opts.EventRate, opts.EventBurst)
	client.UserID, _ = conn.Locals(middleware.LocalUserID).(string)
	client.Name, _ = conn.Locals(middleware.LocalUserName).(string)

	h.Register(client)
	log.Debug().Str("conn", client.ID).Str("user", client.UserID).Msg("connection opened")

	written := make(chan struct{})
	go func() {
		defer close(written)
		client.writePump(conn, opts)
	}()

	client.readPump(conn, d, opts)

	h.Unregister(client)
	d.Disconnect(client.ID)
	// The library recycles conn once we return, so the writer must be finished first.
	<-written
	log.Debug().Str("conn", client.ID).Msg("connection closed")
}

// readPump decodes frames until the socket fails. A missing pong lets the read deadline
// expire, which is how silent clients are detected.
func (c *Client) readPump(conn *fws.Conn, d Dispatcher, opts Options) {
	conn.SetReadLimit(opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if fws.IsUnexpectedCloseError(err, fws.CloseGoingAway, fws.CloseNormalClosure, fws.CloseNoStatusReceived) {
				log.Debug().Str("conn", c.ID).Err(err).Msg("connection lost")
			}
			return
		}

		if !c.Allow() {
			log.Warn().Str("conn", c.ID).Msg("rate limit exceeded, event dropped")
			continue
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			log.Debug().Str("conn", c.ID).Err(err).Msg("frame dropped")
			continue
		}
		if join, ok := msg.(protocol.JoinRoom); ok && join.Username == "" {
			join.Username = c.Name
			msg = join
		}

		if !d.Dispatch(c.ID, msg) {
			return
		}
	}
}

// writePump moves frames from Send onto the socket and pings on a timer. It closes the
// socket on exit so a blocked readPump wakes up.
func (c *Client) writePump(conn *fws.Conn, opts Options) {
	ticker := time.NewTicker(opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				// Hub closed the channel: unregistered or too slow.
				_ = conn.WriteMessage(fws.CloseMessage, fws.FormatCloseMessage(fws.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(fws.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := conn.WriteMessage(fws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

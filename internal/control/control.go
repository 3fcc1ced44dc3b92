// Package control talks to a running CamillaDSP instance over its websocket
// control port.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linuxmatters/avprocessor/internal/camilla"
)

// DefaultAddress is the engine's control port on the local host.
const DefaultAddress = "ws://127.0.0.1:1234"

// DefaultTimeout bounds each command when the context has no deadline.
const DefaultTimeout = 5 * time.Second

// Command names
const (
	CommandSetConfigJSON = "SetConfigJson"
	CommandGetVolume     = "GetVolume"
)

const resultOK = "Ok"

// ErrRejected is returned when the engine answers a command with a result
// other than Ok.
var ErrRejected = errors.New("command rejected by engine")

// Client is a connection to the engine. Commands are serialised; a Client is
// safe for concurrent use.
type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

// reply is the body of every response: {"<Command>": {"result": ..., "value": ...}}
type reply struct {
	Result string          `json:"result"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// Dial connects to the engine at address (ws://host:port).
func Dial(ctx context.Context, address string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultTimeout}
	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return &Client{conn: conn, timeout: DefaultTimeout}, nil
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// SetConfig replaces the running configuration.
func (c *Client) SetConfig(ctx context.Context, cfg *camilla.Config) error {
	msg, err := cfg.SetConfigMessage()
	if err != nil {
		return err
	}
	_, err = c.call(ctx, CommandSetConfigJSON, msg)
	return err
}

// GetVolume returns the current main volume in dB.
func (c *Client) GetVolume(ctx context.Context) (float64, error) {
	msg, err := json.Marshal(CommandGetVolume)
	if err != nil {
		return 0, err
	}
	value, err := c.call(ctx, CommandGetVolume, msg)
	if err != nil {
		return 0, err
	}

	var volume float64
	if err := json.Unmarshal(value, &volume); err != nil {
		return 0, fmt.Errorf("failed to parse %s value: %w", CommandGetVolume, err)
	}
	return volume, nil
}

// call sends one text frame and waits for the matching reply.
func (c *Client) call(ctx context.Context, command string, msg []byte) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	// Unblock the read if the context is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", command, err)
	}

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%s: %w", command, ctxErr)
			}
			return nil, fmt.Errorf("failed to read %s reply: %w", command, err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var envelope map[string]reply
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to parse %s reply: %w", command, err)
		}
		r, ok := envelope[command]
		if !ok {
			// Reply to some other command; keep waiting.
			continue
		}
		if r.Result != resultOK {
			return nil, fmt.Errorf("%w: %s returned %q", ErrRejected, command, r.Result)
		}
		return r.Value, nil
	}
}

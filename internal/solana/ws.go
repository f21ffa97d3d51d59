package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

// LogEvent is one logsNotification for a subscribed address.
type LogEvent struct {
	Signature string
	Err       interface{}
	Logs      []string
}

// LogSubscriber streams log notifications for an address over the RPC
// WebSocket endpoint. One Subscribe call holds one connection; the caller
// owns reconnection.
type LogSubscriber struct {
	wsURL  string
	logger *slog.Logger
}

// NewLogSubscriber creates a subscriber for the given ws:// or wss:// URL.
func NewLogSubscriber(wsURL string, logger *slog.Logger) *LogSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSubscriber{wsURL: wsURL, logger: logger}
}

type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string      `json:"signature"`
				Err       interface{} `json:"err"`
				Logs      []string    `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Subscribe opens a connection, registers a logsSubscribe for transactions
// mentioning address, and invokes handle for every notification until ctx is
// cancelled or the connection drops. Returns nil on cancellation, the read
// error otherwise.
func (s *LogSubscriber) Subscribe(ctx context.Context, address string, handle func(LogEvent)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.wsURL, err)
	}
	defer conn.Close()

	sub := request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{address}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("logsSubscribe(%s): %w", address, err)
	}

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Info("log subscription established", "address", address)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read logs for %s: %w", address, err)
		}

		var note wsNotification
		if err := json.Unmarshal(msg, &note); err != nil || note.Method != "logsNotification" {
			continue // subscription confirmations, pings
		}
		v := note.Params.Result.Value
		if v.Signature == "" {
			continue
		}
		handle(LogEvent{Signature: v.Signature, Err: v.Err, Logs: v.Logs})
	}
}

package bus

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// WebSocketService serves the control protocol over a WebSocket: a
// real bidirectional channel for hosts that can listen, with the same
// envelope, correlation, and token contract as the relay.
type WebSocketService struct {
	Bus *Bus

	// Token, when non-empty, must match the caller's bearer token
	// (Authorization header or 'token' query parameter) before
	// the upgrade.
	Token string

	Upgrader websocket.Upgrader
}

// Handler returns the HTTP handler that upgrades and then serves
// envelopes until the peer goes away.  Each connection's responses go
// only to that connection.
func (s *WebSocketService) Handler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" {
			tok := r.FormValue("token")
			if auth := r.Header.Get("Authorization"); tok == "" && auth != "" {
				tok = strings.TrimPrefix(auth, "Bearer ")
			}
			if tok != s.Token {
				w.WriteHeader(http.StatusUnauthorized)
				writeJSON(w, map[string]interface{}{
					"success": false,
					"error":   "unauthorized",
				})
				return
			}
		}

		c, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error", err)
			return
		}
		defer c.Close()

		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("read error", err)
				break
			}

			var env Envelope
			if err := json.Unmarshal(message, &env); err != nil {
				bad := Response{
					Type:    ResponseType,
					Success: false,
					Error:   "can't parse: " + err.Error(),
				}
				if js, err := json.Marshal(&bad); err == nil {
					if err = c.WriteMessage(websocket.TextMessage, js); err != nil {
						log.Println("write (err)", err)
					}
				}
				continue
			}

			resp, err := s.Bus.Call(ctx, env)
			if err != nil {
				// The bus is gone; so are we.
				break
			}

			js, err := json.Marshal(&resp)
			if err != nil {
				log.Printf("WebSocketService marshal error %v on %#v", err, resp)
				continue
			}
			if err = c.WriteMessage(websocket.TextMessage, js); err != nil {
				log.Println("write error", err)
				break
			}
		}
	}
}

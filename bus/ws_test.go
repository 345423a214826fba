package bus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestWebSocket(t *testing.T) {
	b, cancel := testBus(t)
	defer cancel()

	s := &WebSocketService{Bus: b, Token: testToken}

	ctx, cancelWS := context.WithCancel(context.Background())
	defer cancelWS()
	ts := httptest.NewServer(s.Handler(ctx))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	// No token: refused before the upgrade.
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("dial succeeded without a token")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got %#v", resp)
	}

	c, _, err := websocket.DefaultDialer.Dial(url+"?token="+testToken, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	send := func(env Envelope) Response {
		t.Helper()
		js, err := json.Marshal(&env)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.WriteMessage(websocket.TextMessage, js); err != nil {
			t.Fatal(err)
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		var resp Response
		if err := json.Unmarshal(msg, &resp); err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := send(Envelope{
		Type:      EnvelopeType,
		Command:   "setCell",
		Params:    map[string]interface{}{"ref": "A1", "content": "=6*7"},
		RequestID: "ws-1",
	})
	if !resp.Success || resp.RequestID != "ws-1" || resp.Type != ResponseType {
		t.Fatalf("got %#v", resp)
	}

	resp = send(Envelope{
		Type:      EnvelopeType,
		Command:   "getCellValue",
		Params:    map[string]interface{}{"ref": "A1"},
		RequestID: "ws-2",
	})
	if !resp.Success {
		t.Fatalf("got %#v", resp)
	}
	m, is := resp.Result.(map[string]interface{})
	if !is || m["value"] != float64(42) {
		t.Fatalf("got %#v", resp.Result)
	}

	// Garbage still gets a structured reply.
	if err := c.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatal(err)
	}
	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var bad Response
	if err := json.Unmarshal(msg, &bad); err != nil {
		t.Fatal(err)
	}
	if bad.Success || !strings.Contains(bad.Error, "parse") {
		t.Fatalf("got %#v", bad)
	}
}

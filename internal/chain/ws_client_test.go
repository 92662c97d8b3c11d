package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// idleServer accepts a connection and reads until it is closed.
func idleServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
}

func wsURLFor(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_Connect(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURLFor(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeProgram(t *testing.T) {
	accountData := []byte{1, 2, 3, 4}
	requests := make(chan wsRequest, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				t.Errorf("unmarshal request: %v", err)
				return
			}
			requests <- req

			switch req.Method {
			case "programSubscribe":
				c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 12345})

				time.Sleep(50 * time.Millisecond)
				c.WriteJSON(map[string]interface{}{
					"jsonrpc": "2.0",
					"method":  "programNotification",
					"params": map[string]interface{}{
						"subscription": 12345,
						"result": map[string]interface{}{
							"context": map[string]interface{}{"slot": 100},
							"value": map[string]interface{}{
								"pubkey": "PoolAccount111",
								"account": map[string]interface{}{
									"data":     []string{base64.StdEncoding.EncodeToString(accountData), "base64"},
									"lamports": 2039280,
									"owner":    "ProgramOwner111",
								},
							},
						},
					},
				})
			case "programUnsubscribe":
				c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": true})
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURLFor(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	subID, ch, err := client.SubscribeProgram(ctx, "ProgramOwner111", ProgramFilter{
		DataSize: 752,
		Memcmp:   []Memcmp{{Offset: 560, Bytes: []byte{9, 9}}},
	})
	if err != nil {
		t.Fatalf("SubscribeProgram: %v", err)
	}
	if subID != 12345 {
		t.Errorf("expected subscription 12345, got %d", subID)
	}

	req := <-requests
	if req.Method != "programSubscribe" {
		t.Fatalf("expected programSubscribe, got %s", req.Method)
	}
	if req.Params[0] != "ProgramOwner111" {
		t.Errorf("expected program param, got %v", req.Params[0])
	}
	cfg := req.Params[1].(map[string]interface{})
	if cfg["encoding"] != "base64" {
		t.Errorf("expected base64 encoding, got %v", cfg["encoding"])
	}
	filters := cfg["filters"].([]interface{})
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(filters))
	}
	memcmp := filters[1].(map[string]interface{})["memcmp"].(map[string]interface{})
	if memcmp["bytes"] != base58.Encode([]byte{9, 9}) {
		t.Errorf("expected base58 memcmp bytes, got %v", memcmp["bytes"])
	}

	select {
	case notif := <-ch:
		if notif.Pubkey != "PoolAccount111" {
			t.Errorf("expected PoolAccount111, got %s", notif.Pubkey)
		}
		if notif.Slot != 100 {
			t.Errorf("expected slot 100, got %d", notif.Slot)
		}
		if string(notif.Data) != string(accountData) {
			t.Errorf("expected data %v, got %v", accountData, notif.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}

	if err := client.Unsubscribe(ctx, subID); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel closed after unsubscribe")
	}
}

func TestWSClient_SubscribeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			json.Unmarshal(msg, &req)
			c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32602, "message": "Invalid params"},
			})
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURLFor(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, _, err = client.SubscribeProgram(ctx, "Program", ProgramFilter{})
	if err == nil {
		t.Fatal("expected error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32602 {
		t.Errorf("expected RPCError -32602, got %v", err)
	}
}

func TestWSClient_OnDisconnect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Drop the connection right away
		c.Close()
	}))
	defer server.Close()

	lost := make(chan error, 1)
	cfg := DefaultWSConfig()
	cfg.OnDisconnect = func(err error) { lost <- err }

	client, err := NewWSClient(context.Background(), wsURLFor(server), &cfg)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	select {
	case err := <-lost:
		if err == nil {
			t.Error("expected disconnect cause")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for OnDisconnect")
	}

	select {
	case <-client.Done():
	default:
		t.Error("expected Done closed after connection loss")
	}

	_, _, err = client.SubscribeProgram(context.Background(), "Program", ProgramFilter{})
	if !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestWSClient_Close(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	called := make(chan struct{}, 1)
	cfg := DefaultWSConfig()
	cfg.OnDisconnect = func(error) { called <- struct{}{} }

	client, err := NewWSClient(context.Background(), wsURLFor(server), &cfg)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	select {
	case <-called:
		t.Error("OnDisconnect must not fire on Close")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURLFor(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	client.Close()

	_, _, err = client.SubscribeProgram(ctx, "Program", ProgramFilter{})
	if err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	config := &WSClientConfig{
		PingInterval:   5 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		RequestTimeout: 5 * time.Second,
		Commitment:     CommitmentProcessed,
	}

	client, err := NewWSClient(context.Background(), wsURLFor(server), config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
	if client.config.Commitment != CommitmentProcessed {
		t.Errorf("expected processed commitment, got %s", client.config.Commitment)
	}
}

func TestProgramFilter_Params(t *testing.T) {
	f := ProgramFilter{}
	if got := f.params(); len(got) != 0 {
		t.Errorf("expected no filters, got %v", got)
	}

	f = ProgramFilter{DataSize: 165, Memcmp: []Memcmp{{Offset: 32, Bytes: []byte{1}}}}
	got := f.params()
	if len(got) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(got))
	}
	if got[0].(map[string]interface{})["dataSize"] != uint64(165) {
		t.Errorf("unexpected dataSize filter %v", got[0])
	}
}

func TestProgramFilter_Matches(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5}

	tests := []struct {
		name   string
		filter ProgramFilter
		want   bool
	}{
		{"empty", ProgramFilter{}, true},
		{"size", ProgramFilter{DataSize: 6}, true},
		{"wrong size", ProgramFilter{DataSize: 7}, false},
		{"memcmp", ProgramFilter{Memcmp: []Memcmp{{Offset: 2, Bytes: []byte{2, 3}}}}, true},
		{"memcmp mismatch", ProgramFilter{Memcmp: []Memcmp{{Offset: 2, Bytes: []byte{3}}}}, false},
		{"memcmp past end", ProgramFilter{Memcmp: []Memcmp{{Offset: 5, Bytes: []byte{5, 6}}}}, false},
		{"all", ProgramFilter{DataSize: 6, Memcmp: []Memcmp{{Offset: 0, Bytes: []byte{0}}, {Offset: 5, Bytes: []byte{5}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(data); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

package realtime

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAcceptKey(t *testing.T) {
	// пример из RFC 6455
	if got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="); got != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Fatalf("AcceptKey = %q", got)
	}
}

func TestUpgradeRejectsPlainRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/board", nil)
	if _, err := Upgrade(httptest.NewRecorder(), req); !errors.Is(err, ErrNotWebSocket) {
		t.Fatalf("expected ErrNotWebSocket, got %v", err)
	}
}

type testClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, url string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", strings.TrimPrefix(url, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	req := "GET /ws HTTP/1.1\r\nHost: test\r\nUpgrade: websocket\r\nConnection: keep-alive, Upgrade\r\n" +
		"Sec-WebSocket-Version: 13\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		t.Fatal(err)
	}
	c := &testClient{conn: conn, r: bufio.NewReader(conn)}
	status, err := c.r.ReadString('\n')
	if err != nil || !strings.Contains(status, "101") {
		t.Fatalf("handshake status %q: %v", status, err)
	}
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		if line == "\r\n" {
			return c
		}
	}
}

func (c *testClient) readText(t *testing.T) []byte {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var header [2]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		t.Fatal(err)
	}
	if header[0] != 0x80|opText {
		t.Fatalf("unexpected frame header %#x", header[0])
	}
	payload := make([]byte, header[1]&0x7F)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		t.Fatal(err)
	}
	return payload
}

func (c *testClient) sendClose(t *testing.T) {
	t.Helper()
	frame := []byte{0x80 | opClose, 0x80, 1, 2, 3, 4}
	if _, err := c.conn.Write(frame); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishToCompany(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		hub.Register(7, conn)
		defer hub.Unregister(7, conn)
		for {
			if _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client := dial(t, srv.URL)
	waitFor(t, func() bool { return hub.Subscribers(7) == 1 })

	hub.Publish(8, map[string]int{"task_id": 99})
	hub.Publish(7, map[string]int{"task_id": 1})

	var got map[string]int
	if err := json.Unmarshal(client.readText(t), &got); err != nil {
		t.Fatal(err)
	}
	if got["task_id"] != 1 {
		t.Fatalf("received %v, want task 1 only", got)
	}

	client.sendClose(t)
	waitFor(t, func() bool { return hub.Subscribers(7) == 0 })
}

func TestHub_StalledConnectionDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	// nobody reads the other end, so the first write hangs
	stalled, peer := net.Pipe()
	defer peer.Close()
	hub.Register(3, &Conn{conn: stalled})

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendQueue+2; i++ {
			hub.Publish(3, map[string]int{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish waited for a stalled connection")
	}
	waitFor(t, func() bool { return hub.Subscribers(3) == 0 })

	// publishing to a company nobody watches is a no-op
	hub.Publish(3, map[string]int{"n": -1})
}

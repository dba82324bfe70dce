package wsapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{hub: h, send: make(chan []byte, 4)}
	h.register <- client
	time.Sleep(5 * time.Millisecond) // let the Run loop process registration

	h.Broadcast([]byte("hello"))

	select {
	case msg := <-client.send:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected broadcast message on client.send")
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{hub: h, send: make(chan []byte, 4)}
	h.register <- client
	time.Sleep(5 * time.Millisecond)

	h.unregister <- client
	time.Sleep(5 * time.Millisecond)

	_, ok := <-client.send
	assert.False(t, ok, "send channel should be closed after unregister")
}

func TestHubBroadcastDropsSlowClientRatherThanBlocking(t *testing.T) {
	h := NewHub()
	go h.Run()

	// an unbuffered, full send channel simulates a client that can't keep up.
	client := &Client{hub: h, send: make(chan []byte)}
	h.register <- client
	time.Sleep(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		h.Broadcast([]byte("overflow"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast should not block on a slow client")
	}
}

func TestCheckOriginAllowsConfiguredOriginsOnly(t *testing.T) {
	allowed := &http.Request{Header: http.Header{"Origin": []string{"http://localhost:5173"}}}
	assert.True(t, upgrader.CheckOrigin(allowed))

	noOrigin := &http.Request{Header: http.Header{}}
	assert.True(t, upgrader.CheckOrigin(noOrigin))

	lan := &http.Request{Header: http.Header{"Origin": []string{"http://10.10.10.5"}}, Host: "10.10.10.5:8080"}
	assert.True(t, upgrader.CheckOrigin(lan))

	untrusted := &http.Request{Header: http.Header{"Origin": []string{"http://evil.example.com"}}, Host: "evil.example.com"}
	assert.False(t, upgrader.CheckOrigin(untrusted))
}

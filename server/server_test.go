package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Handlers run in per-message goroutines, so writes from several of them
// must come out of the connection one frame at a time.
func TestConcurrentSendsAreSerialized(t *testing.T) {
	upgraded := make(chan *wsConn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		upgraded <- &wsConn{conn: raw}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	conn := <-upgraded
	defer conn.conn.Close()

	const writers = 16
	s := &WSServer{}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.sendMessage(conn, "status", fmt.Sprintf("writer %d", i))
		}(i)
	}

	seen := make(map[string]bool)
	for i := 0; i < writers; i++ {
		var msg Message
		require.NoError(t, client.ReadJSON(&msg))
		assert.Equal(t, "status", msg.Type)
		seen[msg.Content] = true
	}
	wg.Wait()

	assert.Len(t, seen, writers)
}

func TestConfigDefaults(t *testing.T) {
	s := NewWSServer(Config{}, nil, nil, nil, nil, nil)

	assert.Equal(t, ":8080", s.config.Addr)
	assert.Equal(t, "default", s.config.DefaultProfile)
	assert.Equal(t, 10, s.config.Limit)
}

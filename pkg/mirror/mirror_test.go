package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subscriber is a websocket test server that records received text frames
type subscriber struct {
	srv      *httptest.Server
	messages chan string
	conns    chan *websocket.Conn
}

func newSubscriber(t *testing.T) *subscriber {
	t.Helper()

	s := &subscriber{
		messages: make(chan string, 64),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.TextMessage {
				s.messages <- string(data)
			}
		}
	}))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *subscriber) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *subscriber) next(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-s.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mirrored message")
		return ""
	}
}

func TestClient_Send(t *testing.T) {
	sub := newSubscriber(t)

	client, err := Dial(context.Background(), Config{URL: sub.url(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer client.Close()

	for _, line := range []string{"BEGIN", "row1", "", "END"} {
		require.NoError(t, client.Send(line))
	}

	assert.Equal(t, "BEGIN", sub.next(t))
	assert.Equal(t, "row1", sub.next(t))
	assert.Equal(t, "", sub.next(t))
	assert.Equal(t, "END", sub.next(t))
}

func TestClient_SendAfterClose(t *testing.T) {
	sub := newSubscriber(t)

	client, err := Dial(context.Background(), Config{URL: sub.url(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Send("late"), ErrClosed)

	// Closing twice is harmless
	assert.NoError(t, client.Close())
}

func TestClient_SubscriberGoesAway(t *testing.T) {
	sub := newSubscriber(t)

	client, err := Dial(context.Background(), Config{URL: sub.url(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer client.Close()

	var serverConn *websocket.Conn
	select {
	case serverConn = <-sub.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server websocket connection")
	}
	require.NoError(t, serverConn.Close())

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice the closed connection")
	}

	assert.ErrorIs(t, client.Send("row"), ErrClosed)
}

func TestClient_StuckSubscriber(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Never read, so the client's socket buffers fill up
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client, err := Dial(context.Background(), Config{
		URL:          "ws" + strings.TrimPrefix(srv.URL, "http"),
		WriteTimeout: 100 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	defer client.Close()

	frame := strings.Repeat("x", 64*1024)
	start := time.Now()

	var sendErr error
	for i := 0; i < 4096 && sendErr == nil; i++ {
		sendErr = client.Send(frame)
	}
	elapsed := time.Since(start)

	require.Error(t, sendErr)
	assert.Contains(t, sendErr.Error(), "failed to send to mirror")
	assert.Less(t, elapsed, time.Second)
}

func TestDial_Failure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	client, err := Dial(context.Background(), Config{
		URL:              url,
		HandshakeTimeout: 200 * time.Millisecond,
		Logger:           zerolog.Nop(),
	})
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to mirror")
}

func TestNop(t *testing.T) {
	var sink Sink = Nop{}
	assert.NoError(t, sink.Send("anything"))
}

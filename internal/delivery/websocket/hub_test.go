package websocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "gamecontent-server/internal/delivery/websocket"
	"gamecontent-server/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*ws.Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := ws.NewHub([]string{"http://localhost:3000"}, zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg ws.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastsProgressOnDefaultTopic(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ok := true
	hub.ReportProgress(context.Background(), service.ProgressEvent{
		Stage: service.ProgressItem, BatchID: "b1", Operation: "generate", Index: 1, Total: 3, Success: &ok, Successful: 1,
	})

	msg := readMessage(t, conn)
	assert.Equal(t, ws.MessageTypeBatchProgress, msg.Type)
	assert.Equal(t, "batch:b1", msg.Topic)
	payload := msg.Payload.(map[string]any)
	assert.Equal(t, "item", payload["stage"])
	assert.Equal(t, float64(1), payload["index"])
	assert.Equal(t, true, payload["success"])
}

func TestHubDeliversOnceForOverlappingTopics(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "topic": ws.BatchTopic("b2")}))
	ack := readMessage(t, conn)
	assert.Equal(t, ws.MessageTypeSubscribed, ack.Type)
	assert.Equal(t, "batch:b2", ack.Topic)

	hub.ReportProgress(context.Background(), service.ProgressEvent{Stage: service.ProgressStarted, BatchID: "b2", Total: 2})
	hub.ReportProgress(context.Background(), service.ProgressEvent{Stage: service.ProgressCompleted, BatchID: "b2", Total: 2})

	first := readMessage(t, conn)
	second := readMessage(t, conn)
	assert.Equal(t, "started", first.Payload.(map[string]any)["stage"])
	assert.Equal(t, "completed", second.Payload.(map[string]any)["stage"])
}

func TestHubUnsubscribedClientReceivesNothing(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "unsubscribe", "topic": ws.TopicBatches}))
	ack := readMessage(t, conn)
	assert.Equal(t, ws.MessageTypeUnsubscribed, ack.Type)

	hub.ReportProgress(context.Background(), service.ProgressEvent{Stage: service.ProgressStarted, BatchID: "b3", Total: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no message expected after unsubscribe")
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, url := startHub(t)
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

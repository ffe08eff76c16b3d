package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/restock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, srv *httptest.Server, currentID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?currentId=" + currentID
	header := http.Header{}
	header.Set(APIKeyHeader, testSecret)

	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) StreamFrame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame StreamFrame
	require.NoError(t, ws.ReadJSON(&frame))
	return frame
}

func TestStream_PushesEveryRestock(t *testing.T) {
	engine := setupEngine(t, restock.Config{})
	srv := httptest.NewServer(setupRouter(t, engine, RouterConfig{}))
	defer srv.Close()

	ws := dialStream(t, srv, "")

	// Unknown ID gets the current inventory first
	first := readFrame(t, ws)
	snap := engine.Snapshot()
	assert.Equal(t, snap.Epoch.ID, first.RestockID)
	assert.Equal(t, snap.Stock, first.GearStock)

	require.Eventually(t, func() bool { return engine.Waiting() == 1 }, time.Second, time.Millisecond)
	evt := engine.ForceRestock()

	second := readFrame(t, ws)
	assert.Equal(t, evt.Epoch.ID, second.RestockID)
	assert.Equal(t, evt.Stock, second.GearStock)
}

func TestStream_RequiresAPIKey(t *testing.T) {
	srv := httptest.NewServer(setupRouter(t, setupEngine(t, restock.Config{}), RouterConfig{}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStream_ClientCloseReleasesWaiter(t *testing.T) {
	engine := setupEngine(t, restock.Config{})
	srv := httptest.NewServer(setupRouter(t, engine, RouterConfig{}))
	defer srv.Close()

	ws := dialStream(t, srv, engine.Snapshot().Epoch.ID)
	require.Eventually(t, func() bool { return engine.Waiting() == 1 }, time.Second, time.Millisecond)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	assert.Eventually(t, func() bool { return engine.Waiting() == 0 }, 2*time.Second, 5*time.Millisecond)
}

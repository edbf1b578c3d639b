package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func sampleChanges() []goldprice.ChangeRecord {
	return goldprice.NewClassifier().ClassifyAll(
		goldprice.PriceSet{Price24K: 100, Price22K: 92, Price18K: 75},
		goldprice.PriceSet{Price24K: 150, Price22K: 92, Price18K: 50},
		"MANUAL", time.Now(),
	)
}

func receive(t *testing.T, c *Client) PriceUpdateMessage {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg PriceUpdateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return PriceUpdateMessage{}
	}
}

func TestHub_BroadcastsPriceUpdates(t *testing.T) {
	hub := startHub(t)
	a := NewClient(hub, nil)
	b := NewClient(hub, nil)
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	price := &model.GoldPriceResponse{ID: 7, Sell: goldprice.PriceSet{Price24K: 150}}
	hub.NotifyPriceUpdate(price, sampleChanges())

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, MessageTypePriceUpdate, msg.Type)
		assert.Equal(t, uint(7), msg.Price.ID)
		assert.Len(t, msg.Changes, 3)
	}
}

func TestHub_SubscriptionFiltersChanges(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.HandleClientMessage(c, []byte(`{"type":"subscribe","purities":["18K","bogus"]}`))
	hub.NotifyPriceUpdate(&model.GoldPriceResponse{}, sampleChanges())

	msg := receive(t, c)
	require.Len(t, msg.Changes, 1)
	assert.Equal(t, goldprice.Purity18K, msg.Changes[0].Purity)
}

func TestHub_PingAndRateLimit(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < maxMessagesPerSecond+5; i++ {
		hub.HandleClientMessage(c, []byte(`{"type":"ping"}`))
	}
	assert.Equal(t, maxMessagesPerSecond, len(c.Send))

	data := <-c.Send
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_ServeOverWebSocket(t *testing.T) {
	hub := startHub(t)
	upgrader := NewUpgrader(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := hub.Serve(upgrader, w, r)
		assert.NoError(t, err)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.NotifyPriceUpdate(&model.GoldPriceResponse{ID: 1}, sampleChanges())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg PriceUpdateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypePriceUpdate, msg.Type)
	assert.Len(t, msg.Changes, 3)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	up := NewUpgrader([]string{"http://localhost:3000"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, up.CheckOrigin(req))
}

func TestNewUpgrader_WildcardOrigin(t *testing.T) {
	up := NewUpgrader([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "http://any.example")
	assert.True(t, up.CheckOrigin(req))
}

package broadcast_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/broadcast"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
}

func (r *recordingSubscriber) Deliver(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("connection reset")
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingSubscriber) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *recordingSubscriber) received() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.payloads...)
}

func TestPublishFansOutToCurrentSubscribers(t *testing.T) {
	hub := broadcast.NewHub(nil)
	subs := []*recordingSubscriber{{}, {}, {}}
	handles := make([]broadcast.Handle, len(subs))
	for i, sub := range subs {
		handles[i] = hub.Subscribe(sub)
	}

	assert.Equal(t, 3, hub.Publish(broadcast.Launch(2)))
	for _, sub := range subs {
		require.Len(t, sub.received(), 1)
	}

	hub.Unsubscribe(handles[1])
	assert.True(t, subs[1].closed)
	assert.Equal(t, 2, hub.Publish(broadcast.Launch(0)))
	assert.Len(t, subs[0].received(), 2)
	assert.Len(t, subs[1].received(), 1)
	assert.Len(t, subs[2].received(), 2)
}

func TestPublishSerializesOnce(t *testing.T) {
	hub := broadcast.NewHub(nil)
	a, b := &recordingSubscriber{}, &recordingSubscriber{}
	hub.Subscribe(a)
	hub.Subscribe(b)

	hub.Publish(broadcast.CargoInfo("id-1", "Alpha", "A shiny cargo"))

	pa, pb := a.received()[0], b.received()[0]
	require.NotEmpty(t, pa)
	assert.Same(t, &pa[0], &pb[0], "subscribers must share the serialized bytes")

	var decoded struct {
		Type string                  `json:"type"`
		Data broadcast.CargoInfoData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pa, &decoded))
	assert.Equal(t, "cargoInfo", decoded.Type)
	assert.Equal(t, "Alpha", decoded.Data.Name)
}

func TestFailingSubscriberIsPruned(t *testing.T) {
	hub := broadcast.NewHub(nil)
	good := &recordingSubscriber{}
	bad := &recordingSubscriber{fail: true}
	hub.Subscribe(good)
	hub.Subscribe(bad)

	assert.Equal(t, 1, hub.Publish(broadcast.Weather(true)))
	assert.Equal(t, 1, hub.Count())
	assert.True(t, bad.closed)

	assert.Equal(t, 1, hub.Publish(broadcast.Weather(false)))
	assert.Len(t, good.received(), 2)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := broadcast.NewHub(nil)
	assert.Zero(t, hub.Publish(broadcast.Launch(1)))
	hub.Unsubscribe(42)
}

func TestUnmarshalableEventIsDropped(t *testing.T) {
	hub := broadcast.NewHub(nil)
	sub := &recordingSubscriber{}
	hub.Subscribe(sub)
	assert.Zero(t, hub.Publish(broadcast.Event{Kind: "bad", Data: make(chan int)}))
	assert.Empty(t, sub.received())
	assert.Equal(t, 1, hub.Count())
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	hub := broadcast.NewHub(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h := hub.Subscribe(&recordingSubscriber{})
			hub.Unsubscribe(h)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(broadcast.Launch(1))
		}()
	}
	wg.Wait()
	assert.Zero(t, hub.Count())
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	hub := broadcast.NewHub(nil)
	a, b := &recordingSubscriber{}, &recordingSubscriber{}
	hub.Subscribe(a)
	hub.Subscribe(b)
	hub.Close()
	assert.Zero(t, hub.Count())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestServeWSDeliversEvents(t *testing.T) {
	hub := broadcast.NewHub(nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, hub.Publish(broadcast.CargoCreated("id-9", "cake", "http://cargo.test/api/storage/texture/id-9.jpg")))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded struct {
		Type string                     `json:"type"`
		Data broadcast.CargoCreatedData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(message, &decoded))
	assert.Equal(t, "cargo", decoded.Type)
	assert.Equal(t, "id-9", decoded.Data.ID)
	assert.Equal(t, "http://cargo.test/api/storage/texture/id-9.jpg", decoded.Data.TextureURL)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

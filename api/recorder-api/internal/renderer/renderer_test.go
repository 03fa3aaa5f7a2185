// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_renderer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/gorilla/websocket"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	events []Event
}

func (c *capturePublisher) Publish(e Event) {
	c.events = append(c.events, e)
}

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return logger
}

func TestEventRenderer_MapsCallbacks(t *testing.T) {
	pub := &capturePublisher{}
	r := NewEventRenderer(pub)

	r.OnSessionStarted("rec-1", 10*time.Second)
	r.OnSegmentResolved(1, &internal_type.MediaRef{URL: "/1.wav"}, 10*time.Second, 20*time.Second)
	r.OnProviderText(1, internal_type.ProviderGoogle, "hello")
	r.OnProviderText(2, internal_type.ProviderVertex, internal_type.TimeoutSentinel)
	r.OnCaptureHalted("rec-1", errors.New("device gone"))
	r.OnSessionFinalized("rec-1", map[internal_type.ProviderKey]string{"google": "hi hello"})
	r.OnSessionSummarized("rec-1", map[internal_type.ProviderKey]string{"google": "greetings"})

	require.Len(t, pub.events, 7)
	assert.Equal(t, EventSessionStarted, pub.events[0].Type)
	assert.Equal(t, int64(10000), pub.events[0].SegmentDurationMs)

	resolved := pub.events[1]
	assert.Equal(t, "rec-1", resolved.SessionID)
	assert.Equal(t, 1, *resolved.Index)
	assert.Equal(t, "0:10", resolved.Elapsed)
	assert.Equal(t, int64(20000), resolved.WindowEndMs)

	assert.False(t, pub.events[2].TimedOut)
	assert.True(t, pub.events[3].TimedOut)
	assert.Equal(t, "device gone", pub.events[4].Error)
	assert.Equal(t, "hi hello", pub.events[5].FullText["google"])
	assert.Equal(t, "greetings", pub.events[6].Summaries["google"])
}

func TestEventRenderer_IndexZeroIsSerialized(t *testing.T) {
	pub := &capturePublisher{}
	NewEventRenderer(pub).OnProviderText(0, internal_type.ProviderGoogle, "")

	data, err := json.Marshal(pub.events[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"idx":0`)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &capturePublisher{}, &capturePublisher{}
	r := Multi(NewEventRenderer(a), nil, NewEventRenderer(b), NewLogRenderer(newTestLogger(t)))

	r.OnSessionStarted("rec-1", time.Second)
	r.OnSegmentResolved(0, nil, 0, time.Second)
	r.OnProviderText(0, internal_type.ProviderAWS, "x")
	r.OnCaptureHalted("rec-1", nil)
	r.OnSessionFinalized("rec-1", nil)
	r.OnSessionSummarized("rec-1", nil)

	assert.Len(t, a.events, 6)
	assert.Len(t, b.events, 6)
}

func TestRedisPublisher_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewRedisPublisher(newTestLogger(t), db, "segscribe:events")

	idx := 3
	e := Event{Type: EventProviderText, SessionID: "rec-1", Index: &idx, Provider: "google", Text: "hi"}
	data, _ := json.Marshal(e)
	mock.ExpectPublish("segscribe:events", string(data)).SetVal(1)

	require.NoError(t, p.publish(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPublisher_PublishError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewRedisPublisher(newTestLogger(t), db, "events")

	e := Event{Type: EventSessionFinalized, SessionID: "rec-1"}
	data, _ := json.Marshal(e)
	mock.ExpectPublish("events", string(data)).SetErr(errors.New("connection refused"))

	err := p.publish(context.Background(), e)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedisPublisher_RunDrainsQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewRedisPublisher(newTestLogger(t), db, "events")

	e := Event{Type: EventSessionStarted, SessionID: "rec-1"}
	data, _ := json.Marshal(e)
	mock.ExpectPublish("events", string(data)).SetVal(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)
	p.Publish(e)

	assert.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, time.Second, 5*time.Millisecond)
}

func TestRedisPublisher_DropsWhenFull(t *testing.T) {
	db, _ := redismock.NewClientMock()
	p := NewRedisPublisher(newTestLogger(t), db, "events")
	for i := 0; i < redisQueueSize+10; i++ {
		p.Publish(Event{Type: EventProviderText})
	}
	assert.Len(t, p.queue, redisQueueSize)
}

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := NewHub(newTestLogger(t))
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	NewEventRenderer(hub).OnSessionFinalized("rec-1", map[internal_type.ProviderKey]string{"google": "hi hello"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventSessionFinalized, got.Type)
	assert.Equal(t, "hi hello", got.FullText["google"])

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

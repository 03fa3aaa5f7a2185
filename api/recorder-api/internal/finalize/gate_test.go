// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_finalize

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	highest   int
	providers []internal_type.ProviderKey
	lens      map[internal_type.ProviderKey]int
}

func (f *fakeView) HighestCapturedIndex() int { return f.highest }
func (f *fakeView) Providers() []internal_type.ProviderKey { return f.providers }
func (f *fakeView) TranscriptLen(p internal_type.ProviderKey) int { return f.lens[p] }

func TestReady(t *testing.T) {
	google := internal_type.ProviderGoogle
	vertex := internal_type.ProviderVertex
	tests := []struct {
		name     string
		inFlight int
		view     *fakeView
		expected bool
	}{
		{"uploads in flight", 1, &fakeView{highest: 0, providers: []internal_type.ProviderKey{google}, lens: map[internal_type.ProviderKey]int{google: 1}}, false},
		{"no segments", 0, &fakeView{highest: -1, providers: []internal_type.ProviderKey{google}}, true},
		{"no providers", 0, &fakeView{highest: 3}, true},
		{"last slot missing", 0, &fakeView{highest: 2, providers: []internal_type.ProviderKey{google}, lens: map[internal_type.ProviderKey]int{google: 2}}, false},
		{"last slot present", 0, &fakeView{highest: 2, providers: []internal_type.ProviderKey{google}, lens: map[internal_type.ProviderKey]int{google: 3}}, true},
		{"any provider suffices", 0, &fakeView{highest: 2, providers: []internal_type.ProviderKey{google, vertex}, lens: map[internal_type.ProviderKey]int{google: 1, vertex: 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Ready(tt.inFlight, tt.view))
		})
	}
}

// timerQueue hands fired timer callbacks to the test goroutine, the way the
// engine loop receives them.
type timerQueue chan func()

func (q timerQueue) dispatch(f func()) { q <- f }

// run executes the next n callbacks in arrival order.
func (q timerQueue) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case f := <-q:
			f()
		case <-time.After(time.Second):
			t.Fatalf("expected %d timer callback(s), got %d", n, i)
		}
	}
}

func (q timerQueue) idle(t *testing.T) {
	t.Helper()
	select {
	case <-q:
		t.Fatal("unexpected timer callback")
	case <-time.After(50 * time.Millisecond):
	}
}

type gateHarness struct {
	gate  *Gate
	clock *clockwork.FakeClock
	queue timerQueue
	ready bool
	done  int
}

func newGateHarness(t *testing.T) *gateHarness {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	h := &gateHarness{clock: clockwork.NewFakeClockAt(time.Unix(0, 0)), queue: make(timerQueue, 16)}
	h.gate = NewGate(logger, h.clock, func() bool { return h.ready }, func() { h.done++ }, WithDispatcher(h.queue.dispatch))
	return h
}

func TestGate_ImmediateCompletion(t *testing.T) {
	h := newGateHarness(t)
	h.ready = true
	h.gate.Arm()

	assert.Equal(t, Done, h.gate.State())
	assert.Equal(t, 1, h.done)
	h.clock.Advance(time.Minute)
	h.queue.idle(t)
}

func TestGate_PollsUntilReady(t *testing.T) {
	h := newGateHarness(t)
	h.gate.Arm()
	assert.Equal(t, Armed, h.gate.State())

	h.clock.Advance(DefaultInterval)
	h.queue.run(t, 1)
	assert.Equal(t, Armed, h.gate.State())

	// the failed poll scheduled exactly one follow-up
	h.gate.Evaluate()
	h.ready = true
	h.clock.Advance(DefaultInterval)
	h.queue.run(t, 1)
	h.queue.idle(t)
	assert.Equal(t, Done, h.gate.State())
	assert.Equal(t, 1, h.done)

	h.clock.Advance(time.Minute)
	h.queue.idle(t)
}

func TestGate_EvaluateAfterMutation(t *testing.T) {
	h := newGateHarness(t)
	h.gate.Arm()
	h.gate.Evaluate()

	h.ready = true
	assert.True(t, h.gate.Evaluate())
	assert.False(t, h.gate.Evaluate())
	assert.Equal(t, 1, h.done)

	h.clock.Advance(time.Minute)
	h.queue.idle(t)
}

func TestGate_NeverCompletesWhileUploadsInFlight(t *testing.T) {
	logger, _ := commons.NewApplicationLogger()
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0))
	queue := make(timerQueue, 16)
	view := &fakeView{highest: 0, providers: []internal_type.ProviderKey{internal_type.ProviderGoogle}, lens: map[internal_type.ProviderKey]int{internal_type.ProviderGoogle: 1}}
	inFlight := 2
	done := false
	g := NewGate(logger, clk, func() bool { return Ready(inFlight, view) }, func() { done = true }, WithDispatcher(queue.dispatch))

	g.Arm()
	for i := 0; i < 4; i++ {
		clk.Advance(DefaultInterval)
		queue.run(t, 1)
	}
	assert.False(t, done)

	inFlight = 0
	g.Evaluate()
	assert.True(t, done)
}

func TestGate_AppendedSlotIsNotWaitedOn(t *testing.T) {
	google := internal_type.ProviderGoogle
	// two captured windows, a third slot appended for an unknown message
	view := &fakeView{highest: 1, providers: []internal_type.ProviderKey{google}, lens: map[internal_type.ProviderKey]int{google: 2}}
	assert.True(t, Ready(0, view))
}

func TestGate_IdleIgnoresEvaluate(t *testing.T) {
	h := newGateHarness(t)
	h.ready = true
	assert.False(t, h.gate.Evaluate())
	assert.Equal(t, Idle, h.gate.State())
}

func TestGate_Reset(t *testing.T) {
	h := newGateHarness(t)
	h.gate.Arm()
	h.gate.Reset()
	assert.Equal(t, Idle, h.gate.State())
	h.clock.Advance(time.Minute)
	h.queue.idle(t)

	h.ready = true
	h.gate.Arm()
	assert.Equal(t, 1, h.done)
	assert.Equal(t, "done", h.gate.State().String())
}

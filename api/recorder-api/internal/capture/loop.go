// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

var ErrAlreadyStarted = errors.New("capture loop already started")

// Loop cuts a continuous device into fixed windows. Window n+1 is started
// before window n is stopped so consecutive windows leave no gap. Offsets
// are derived from the start time and the duration only.
//
// Loop is driven from a single goroutine; timer callbacks reach it through
// the dispatcher.
type Loop struct {
	logger    commons.Logger
	device    internal_type.CaptureDevice
	clock     clockwork.Clock
	duration  time.Duration
	dispatch  func(func())
	onSegment func(internal_type.Segment)
	onHalt    func(error)

	ctx       context.Context
	startedAt time.Time
	index     int
	handle    internal_type.ChunkHandle
	timer     clockwork.Timer
	running   bool
	halted    bool
	stopOnce  sync.Once
	lastID    int64
}

type Option func(*Loop)

func WithDispatcher(dispatch func(func())) Option {
	return func(l *Loop) { l.dispatch = dispatch }
}

// WithHaltHandler is told once when the device fails to start a window.
func WithHaltHandler(onHalt func(error)) Option {
	return func(l *Loop) { l.onHalt = onHalt }
}

func NewLoop(logger commons.Logger, device internal_type.CaptureDevice, clk clockwork.Clock, duration time.Duration, onSegment func(internal_type.Segment), opts ...Option) *Loop {
	l := &Loop{
		logger:    logger,
		device:    device,
		clock:     clk,
		duration:  duration,
		dispatch:  func(f func()) { f() },
		onSegment: onSegment,
		onHalt:    func(error) {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start opens window 0. A device failure here halts the loop immediately.
func (l *Loop) Start(ctx context.Context) error {
	if l.running || l.halted {
		return ErrAlreadyStarted
	}
	l.ctx = ctx
	h, err := l.device.StartWindow(ctx, l.duration)
	if err != nil {
		l.halted = true
		return &internal_type.CaptureError{Index: 0, Err: err}
	}
	l.startedAt = l.clock.Now()
	l.index = 0
	l.handle = h
	l.running = true
	l.logger.Infof("capture: started, window %s", l.duration)
	l.scheduleNext()
	return nil
}

func (l *Loop) StartedAt() time.Time {
	return l.startedAt
}

func (l *Loop) Running() bool {
	return l.running
}

// Index is the window currently being captured.
func (l *Loop) Index() int {
	return l.index
}

func (l *Loop) scheduleNext() {
	due := l.startedAt.Add(time.Duration(l.index+1) * l.duration)
	expected := l.index
	l.timer = l.clock.AfterFunc(due.Sub(l.clock.Now()), func() {
		l.dispatch(func() { l.rotate(expected) })
	})
}

func (l *Loop) rotate(expected int) {
	if !l.running || l.index != expected {
		return
	}
	next, err := l.device.StartWindow(l.ctx, l.duration)
	l.emit(l.index, l.handle)
	if err != nil {
		l.halt(&internal_type.CaptureError{Index: expected + 1, Err: err})
		return
	}
	l.index++
	l.handle = next
	l.scheduleNext()
}

func (l *Loop) emit(idx int, h internal_type.ChunkHandle) {
	chunk, err := l.device.StopWindow(h)
	if err != nil {
		// keep the index so the timeline stays dense; the upload will fail
		l.logger.Errorf("capture: unable to stop window %d: %v", idx, err)
	}
	now := l.clock.Now()
	l.onSegment(internal_type.Segment{
		Index:       idx,
		LocalID:     l.nextLocalID(now),
		Data:        chunk.Data,
		Mime:        chunk.Mime,
		WindowStart: time.Duration(idx) * l.duration,
		WindowEnd:   time.Duration(idx+1) * l.duration,
		CapturedAt:  now,
	})
}

// nextLocalID returns a millisecond timestamp, bumped when needed so ids
// stay unique and increasing within the session.
func (l *Loop) nextLocalID(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= l.lastID {
		ms = l.lastID + 1
	}
	l.lastID = ms
	return strconv.FormatInt(ms, 10)
}

func (l *Loop) halt(err error) {
	l.running = false
	l.halted = true
	if l.timer != nil {
		l.timer.Stop()
	}
	l.logger.Errorf("capture: halted: %v", err)
	l.onHalt(err)
}

// Stop closes the current window, emitting it as the final segment. Calling
// it again, or after a halt, does nothing.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		if !l.running {
			return
		}
		if l.timer != nil {
			l.timer.Stop()
		}
		l.running = false
		l.halted = true
		l.emit(l.index, l.handle)
		l.logger.Infof("capture: stopped after %d window(s)", l.index+1)
	})
}

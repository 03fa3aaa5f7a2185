// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_timeout

import (
	"time"

	"github.com/jonboulle/clockwork"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const (
	DefaultMargin = 500 * time.Millisecond
	DefaultFloor  = 30 * time.Second
	// durations below this use the floor instead of duration + margin
	shortSegment = time.Second
)

// Key identifies one (segment, provider) deadline.
type Key struct {
	Index    int
	Provider internal_type.ProviderKey
}

type handle struct {
	timer clockwork.Timer
}

// Supervisor arms one deadline per segment per provider and fires each at
// most once. Arm, Cancel and the fire callback are expected to run on one
// goroutine; timers reach it through the dispatcher.
type Supervisor struct {
	logger   commons.Logger
	clock    clockwork.Clock
	margin   time.Duration
	floor    time.Duration
	dispatch func(func())
	onFire   func(Key)

	handles  map[Key]*handle
	resolved map[Key]struct{}
	sealed   bool
}

type Option func(*Supervisor)

func WithMargin(d time.Duration) Option {
	return func(s *Supervisor) { s.margin = d }
}

func WithFloor(d time.Duration) Option {
	return func(s *Supervisor) { s.floor = d }
}

// WithDispatcher routes timer callbacks onto the owner's goroutine.
func WithDispatcher(dispatch func(func())) Option {
	return func(s *Supervisor) { s.dispatch = dispatch }
}

func NewSupervisor(logger commons.Logger, clk clockwork.Clock, onFire func(Key), opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:   logger,
		clock:    clk,
		margin:   DefaultMargin,
		floor:    DefaultFloor,
		dispatch: func(f func()) { f() },
		onFire:   onFire,
		handles:  make(map[Key]*handle),
		resolved: make(map[Key]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deadline is how long a provider may take for a segment of duration d.
func (s *Supervisor) Deadline(d time.Duration) time.Duration {
	if d < shortSegment {
		return s.floor
	}
	return d + s.margin
}

// Arm starts a deadline for every provider that has neither a live handle
// nor a settled outcome for the index. It returns how many were armed.
func (s *Supervisor) Arm(index int, duration time.Duration, providers []internal_type.ProviderKey) int {
	if s.sealed {
		s.logger.Debugf("timeout: supervisor sealed, not arming segment %d", index)
		return 0
	}
	deadline := s.Deadline(duration)
	armed := 0
	for _, p := range providers {
		key := Key{Index: index, Provider: p}
		if _, live := s.handles[key]; live {
			continue
		}
		if _, done := s.resolved[key]; done {
			continue
		}
		h := &handle{}
		h.timer = s.clock.AfterFunc(deadline, func() {
			s.dispatch(func() { s.fire(key, h) })
		})
		s.handles[key] = h
		armed++
	}
	if armed > 0 {
		s.logger.Debugf("timeout: armed %d deadline(s) for segment %d at %s", armed, index, deadline)
	}
	return armed
}

// Cancel settles a (segment, provider) pair because its result arrived. It
// reports whether a live handle was stopped.
func (s *Supervisor) Cancel(index int, p internal_type.ProviderKey) bool {
	key := Key{Index: index, Provider: p}
	s.resolved[key] = struct{}{}
	h, ok := s.handles[key]
	if !ok {
		return false
	}
	h.timer.Stop()
	delete(s.handles, key)
	return true
}

func (s *Supervisor) fire(key Key, h *handle) {
	// a cancelled or replaced handle may still deliver its callback
	if current, ok := s.handles[key]; !ok || current != h {
		return
	}
	delete(s.handles, key)
	s.resolved[key] = struct{}{}
	s.logger.Debugf("timeout: %v for segment %d provider %s", internal_type.ErrProviderTimeout, key.Index, key.Provider)
	if s.onFire != nil {
		s.onFire(key)
	}
}

// Seal stops accepting new handles. Handles already armed keep running so a
// stopped session can still settle its last segments.
func (s *Supervisor) Seal() {
	s.sealed = true
}

// CancelAll stops every live handle.
func (s *Supervisor) CancelAll() int {
	n := len(s.handles)
	for key, h := range s.handles {
		h.timer.Stop()
		delete(s.handles, key)
	}
	return n
}

// Reset tears everything down for a new session.
func (s *Supervisor) Reset() {
	s.CancelAll()
	s.resolved = make(map[Key]struct{})
	s.sealed = false
}

func (s *Supervisor) Pending() int {
	return len(s.handles)
}

func (s *Supervisor) IsArmed(index int, p internal_type.ProviderKey) bool {
	_, ok := s.handles[Key{Index: index, Provider: p}]
	return ok
}

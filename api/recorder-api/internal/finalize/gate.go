// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_finalize

import (
	"time"

	"github.com/jonboulle/clockwork"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const DefaultInterval = 250 * time.Millisecond

type State int

const (
	Idle State = iota
	Armed
	Done
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Done:
		return "done"
	default:
		return "idle"
	}
}

// SessionView is what the completion condition reads from a session.
type SessionView interface {
	HighestCapturedIndex() int
	Providers() []internal_type.ProviderKey
	TranscriptLen(p internal_type.ProviderKey) int
}

// Ready reports whether a stopped session may be finalized: nothing is in
// flight and the last captured segment has an entry, possibly empty, from
// at least one enabled provider. Slots appended for unknown messages are not
// waited on.
func Ready(inFlight int, view SessionView) bool {
	if inFlight > 0 {
		return false
	}
	last := view.HighestCapturedIndex()
	if last < 0 {
		return true
	}
	providers := view.Providers()
	if len(providers) == 0 {
		return true
	}
	for _, p := range providers {
		if view.TranscriptLen(p) > last {
			return true
		}
	}
	return false
}

// Gate defers completion of a stopped session until its condition holds. It
// is re-evaluated after every mutation and, while armed, on a fixed poll.
type Gate struct {
	logger   commons.Logger
	clock    clockwork.Clock
	interval time.Duration
	dispatch func(func())
	check    func() bool
	onDone   func()

	state State
	timer clockwork.Timer
}

type Option func(*Gate)

func WithInterval(d time.Duration) Option {
	return func(g *Gate) { g.interval = d }
}

func WithDispatcher(dispatch func(func())) Option {
	return func(g *Gate) { g.dispatch = dispatch }
}

func NewGate(logger commons.Logger, clk clockwork.Clock, check func() bool, onDone func(), opts ...Option) *Gate {
	g := &Gate{
		logger:   logger,
		clock:    clk,
		interval: DefaultInterval,
		dispatch: func(f func()) { f() },
		check:    check,
		onDone:   onDone,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) State() State {
	return g.state
}

// Arm moves an idle gate to armed and evaluates it straight away.
func (g *Gate) Arm() {
	if g.state != Idle {
		return
	}
	g.state = Armed
	g.logger.Debugf("finalize: gate armed")
	g.Evaluate()
}

// Evaluate checks the condition of an armed gate. It returns true when this
// call completed the gate.
func (g *Gate) Evaluate() bool {
	if g.state != Armed {
		return false
	}
	if !g.check() {
		g.schedule()
		return false
	}
	g.state = Done
	g.stopTimer()
	g.logger.Debugf("finalize: gate done")
	g.onDone()
	return true
}

func (g *Gate) schedule() {
	if g.timer != nil {
		return
	}
	var t clockwork.Timer
	t = g.clock.AfterFunc(g.interval, func() {
		g.dispatch(func() {
			if g.timer == t {
				g.timer = nil
			}
			g.Evaluate()
		})
	})
	g.timer = t
}

func (g *Gate) stopTimer() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// Reset returns the gate to idle for a new session.
func (g *Gate) Reset() {
	g.stopTimer()
	g.state = Idle
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_engine

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	internal_finalize "github.com/rapidaai/segscribe/api/recorder-api/internal/finalize"
	internal_provider "github.com/rapidaai/segscribe/api/recorder-api/internal/provider"
	internal_renderer "github.com/rapidaai/segscribe/api/recorder-api/internal/renderer"
	internal_session "github.com/rapidaai/segscribe/api/recorder-api/internal/session"
	internal_summarizer "github.com/rapidaai/segscribe/api/recorder-api/internal/summarizer"
	internal_timeout "github.com/rapidaai/segscribe/api/recorder-api/internal/timeout"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const (
	eventQueueSize        = 256
	defaultExportInterval = 2 * time.Second
)

// Session states reported in snapshots.
const (
	StateCapturing  = "capturing"
	StateFinalizing = "finalizing"
	StateFinalized  = "finalized"
)

type StartOptions struct {
	// SegmentDuration overrides the configured window length when non-zero.
	SegmentDuration time.Duration
}

// Engine owns the current recording. Every mutation, whether it comes from
// the API, a timer, an upload completion or the remote listener, runs as a
// closure on a single goroutine, so the components it drives need no locks.
type Engine struct {
	logger     commons.Logger
	clock      clockwork.Clock
	device     internal_type.CaptureDevice
	transport  internal_type.Transport
	exporter   internal_type.Exporter
	renderer   internal_type.Renderer
	summarizer internal_summarizer.Summarizer
	registry   *internal_provider.Registry

	segmentDuration  time.Duration
	timeoutMargin    time.Duration
	timeoutFloor     time.Duration
	pollInterval     time.Duration
	uploadTimeout    time.Duration
	exportInterval   time.Duration
	exportOnFinalize bool

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	current *recording
}

func New(logger commons.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:          logger,
		clock:           clockwork.NewRealClock(),
		segmentDuration: 10 * time.Second,
		timeoutMargin:   internal_timeout.DefaultMargin,
		timeoutFloor:    internal_timeout.DefaultFloor,
		pollInterval:    internal_finalize.DefaultInterval,
		exportInterval:  defaultExportInterval,
		events:          make(chan func(), eventQueueSize),
		done:            make(chan struct{}),
		stopped:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil {
		e.renderer = internal_renderer.Multi()
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	go e.loop()
	return e
}

func (e *Engine) loop() {
	defer close(e.stopped)
	for {
		select {
		case f := <-e.events:
			e.run(f)
		case <-e.done:
			return
		}
	}
}

func (e *Engine) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("engine: recovered from panic: %v", r)
		}
	}()
	f()
}

// post queues f on the engine goroutine. It is the dispatcher handed to
// every timer and background completion.
func (e *Engine) post(f func()) {
	select {
	case e.events <- f:
	case <-e.done:
	}
}

// call runs f on the engine goroutine and waits for it.
func (e *Engine) call(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		f()
	}
	select {
	case e.events <- task:
	case <-e.done:
		return internal_type.ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-e.done:
		return internal_type.ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the engine goroutine and cancels outstanding background work.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		close(e.done)
		<-e.stopped
	})
}

// Start opens a new recording and begins capturing. It fails while another
// recording is still capturing.
func (e *Engine) Start(ctx context.Context, opts StartOptions) (string, error) {
	var (
		id  string
		err error
	)
	if cerr := e.call(ctx, func() { id, err = e.start(opts) }); cerr != nil {
		return "", cerr
	}
	return id, err
}

// Stop halts capture and arms finalization. Stopping an already stopped
// recording is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	var err error
	if cerr := e.call(ctx, func() { err = e.stop() }); cerr != nil {
		return cerr
	}
	return err
}

// Snapshot returns a detached copy of the current recording.
func (e *Engine) Snapshot(ctx context.Context) (internal_session.Snapshot, error) {
	var (
		snap internal_session.Snapshot
		err  error
	)
	cerr := e.call(ctx, func() {
		if e.current == nil {
			err = internal_type.ErrNoSession
			return
		}
		snap = e.current.snapshot()
	})
	if cerr != nil {
		return internal_session.Snapshot{}, cerr
	}
	return snap, err
}

// HandleSegmentSaved applies a save notification received out of band.
func (e *Engine) HandleSegmentSaved(ctx context.Context, msg internal_type.SavedMessage) error {
	var err error
	if cerr := e.call(ctx, func() { err = e.onSaved(msg) }); cerr != nil {
		return cerr
	}
	return err
}

// HandleTranscript applies a provider result received out of band.
func (e *Engine) HandleTranscript(ctx context.Context, msg internal_type.TranscriptMessage) error {
	var err error
	if cerr := e.call(ctx, func() { err = e.onTranscript(msg) }); cerr != nil {
		return cerr
	}
	return err
}

// Export requests the concatenated recording of the current session and
// waits for its URL.
func (e *Engine) Export(ctx context.Context) (string, error) {
	if e.exporter == nil {
		return "", internal_type.ErrExportDisabled
	}
	var (
		rec *recording
		err error
	)
	cerr := e.call(ctx, func() {
		if e.current == nil {
			err = internal_type.ErrNoSession
			return
		}
		rec = e.current
	})
	if cerr != nil {
		return "", cerr
	}
	if err != nil {
		return "", err
	}
	url, err := e.export(ctx, rec)
	if err != nil {
		return "", err
	}
	return url, nil
}

var _ internal_type.MessageHandler = (*Engine)(nil)

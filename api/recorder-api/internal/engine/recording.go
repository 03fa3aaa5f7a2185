// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	internal_capture "github.com/rapidaai/segscribe/api/recorder-api/internal/capture"
	internal_correlation "github.com/rapidaai/segscribe/api/recorder-api/internal/correlation"
	internal_finalize "github.com/rapidaai/segscribe/api/recorder-api/internal/finalize"
	internal_session "github.com/rapidaai/segscribe/api/recorder-api/internal/session"
	internal_summarizer "github.com/rapidaai/segscribe/api/recorder-api/internal/summarizer"
	internal_timeout "github.com/rapidaai/segscribe/api/recorder-api/internal/timeout"
	internal_transport "github.com/rapidaai/segscribe/api/recorder-api/internal/transport"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	internal_upload "github.com/rapidaai/segscribe/api/recorder-api/internal/upload"
)

// recording bundles the per-session components. Completions and timers keep
// a pointer to the recording they were created for, so late work lands in
// its own session even after a new one has started.
type recording struct {
	session    *internal_session.Session
	store      *internal_correlation.Store
	supervisor *internal_timeout.Supervisor
	gate       *internal_finalize.Gate
	capture    *internal_capture.Loop
	uploads    *internal_upload.Client
	enabled    map[internal_type.ProviderKey]struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

func (r *recording) state() string {
	switch {
	case r.session.IsFinalized():
		return StateFinalized
	case r.session.IsStopped():
		return StateFinalizing
	default:
		return StateCapturing
	}
}

func (r *recording) snapshot() internal_session.Snapshot {
	snap := r.session.Snapshot()
	snap.State = r.state()
	snap.InFlight = r.uploads.InFlight()
	return snap
}

// teardown abandons a stopped recording that never finalized.
func (r *recording) teardown() {
	r.gate.Reset()
	r.supervisor.Reset()
	r.store.Reset()
	r.cancel()
}

func (e *Engine) newRecording(id string, duration time.Duration, providers []internal_type.ProviderKey) *recording {
	rec := &recording{
		session: internal_session.New(id, e.clock.Now(), duration, providers),
		store:   internal_correlation.NewStore(e.logger),
		enabled: make(map[internal_type.ProviderKey]struct{}, len(providers)),
	}
	for _, p := range providers {
		rec.enabled[p] = struct{}{}
	}
	rec.ctx, rec.cancel = context.WithCancel(e.ctx)
	rec.uploads = internal_upload.NewClient(e.logger, e.transport,
		internal_upload.WithDispatcher(e.post),
		internal_upload.WithTimeout(e.uploadTimeout),
	)
	rec.supervisor = internal_timeout.NewSupervisor(e.logger, e.clock,
		func(key internal_timeout.Key) { e.onTimeout(rec, key) },
		internal_timeout.WithMargin(e.timeoutMargin),
		internal_timeout.WithFloor(e.timeoutFloor),
		internal_timeout.WithDispatcher(e.post),
	)
	rec.gate = internal_finalize.NewGate(e.logger, e.clock,
		func() bool { return internal_finalize.Ready(rec.uploads.InFlight(), rec.session) },
		func() { e.finalize(rec) },
		internal_finalize.WithInterval(e.pollInterval),
		internal_finalize.WithDispatcher(e.post),
	)
	rec.capture = internal_capture.NewLoop(e.logger, e.device, e.clock, duration,
		func(seg internal_type.Segment) { e.onSegment(rec, seg) },
		internal_capture.WithDispatcher(e.post),
		internal_capture.WithHaltHandler(func(err error) { e.onCaptureHalted(rec, err) }),
	)
	return rec
}

func (e *Engine) start(opts StartOptions) (string, error) {
	if e.current != nil && !e.current.session.IsStopped() {
		return "", internal_type.ErrSessionActive
	}
	if e.device == nil {
		return "", internal_type.ErrNoDevice
	}
	duration := opts.SegmentDuration
	if duration <= 0 {
		duration = e.segmentDuration
	}
	var providers []internal_type.ProviderKey
	if e.registry != nil {
		providers = e.registry.Enabled()
	}
	if previous := e.current; previous != nil && !previous.session.IsFinalized() {
		e.logger.Warnf("engine: abandoning recording %s before it finalized", previous.session.ID())
		previous.teardown()
	}

	rec := e.newRecording(uuid.NewString(), duration, providers)
	if err := rec.capture.Start(rec.ctx); err != nil {
		rec.cancel()
		return "", err
	}
	e.current = rec
	e.logger.Infof("engine: recording %s started, window %s, providers %v", rec.session.ID(), duration, providers)
	e.renderer.OnSessionStarted(rec.session.ID(), duration)
	return rec.session.ID(), nil
}

func (e *Engine) stop() error {
	if e.current == nil {
		return internal_type.ErrNoSession
	}
	e.halt(e.current)
	return nil
}

// halt closes capture, which emits the final window and arms its
// deadlines, then seals the supervisor and arms the gate.
func (e *Engine) halt(rec *recording) {
	if rec.session.IsStopped() {
		return
	}
	rec.capture.Stop()
	rec.session.MarkStopped(e.clock.Now())
	rec.supervisor.Seal()
	e.logger.Infof("engine: recording %s stopped with %d segment(s), %d upload(s) in flight",
		rec.session.ID(), rec.session.SlotCount(), rec.uploads.InFlight())
	rec.gate.Arm()
}

func (e *Engine) onCaptureHalted(rec *recording, err error) {
	if rec.session.CaptureError() != nil {
		return
	}
	rec.session.SetCaptureError(err)
	e.renderer.OnCaptureHalted(rec.session.ID(), err)
	e.halt(rec)
}

func (e *Engine) onSegment(rec *recording, seg internal_type.Segment) {
	rec.session.AddSegment(seg)
	rec.store.Bind(seg.Index, internal_type.Ref{Index: seg.Index, LocalID: seg.LocalID})
	rec.supervisor.Arm(seg.Index, seg.Duration(), rec.session.Providers())
	rec.uploads.Upload(rec.ctx, internal_type.UploadRequest{
		SessionID:  rec.session.ID(),
		Index:      seg.Index,
		LocalID:    seg.LocalID,
		Duration:   seg.Duration(),
		Mime:       seg.Mime,
		Data:       seg.Data,
		CapturedAt: seg.CapturedAt,
	}, func(req internal_type.UploadRequest, res *internal_type.UploadResult, err error) {
		e.onUploaded(rec, req, res, err)
	})
}

// sealed reports whether a recording no longer takes late results. A
// finalized timeline and its full text stay as they were computed.
func (e *Engine) sealed(rec *recording, what string) bool {
	if !rec.session.IsFinalized() {
		return false
	}
	e.logger.Debugf("engine: dropping %s for finalized recording %s", what, rec.session.ID())
	return true
}

func (e *Engine) onUploaded(rec *recording, req internal_type.UploadRequest, res *internal_type.UploadResult, err error) {
	if e.sealed(rec, "upload result") {
		return
	}
	if err == nil {
		// the server id may reach the listener before or after the save
		// notification, so it is bound no matter which one applies the media
		if res.RemoteID != "" {
			rec.store.Bind(req.Index, internal_type.Ref{Index: req.Index, RemoteID: res.RemoteID})
		}
		partial := internal_correlation.Partial{Transcripts: res.ProviderResults}
		if res.Media != nil {
			partial.Saved = &internal_correlation.SaveMetadata{RemoteID: res.RemoteID, Media: *res.Media}
		}
		e.merge(rec, internal_correlation.IndexKey(req.Index), partial)
	}
	// the in-flight counter dropped either way
	rec.gate.Evaluate()
}

func (e *Engine) onSaved(msg internal_type.SavedMessage) error {
	rec := e.current
	if rec == nil {
		return internal_type.ErrNoSession
	}
	if e.sealed(rec, "save notification") {
		return nil
	}
	idx := rec.store.ResolveIndex(msg.Ref, rec.session)
	e.merge(rec, internal_correlation.IndexKey(idx), internal_correlation.Partial{
		Saved: &internal_correlation.SaveMetadata{RemoteID: msg.RemoteID, Media: msg.Media},
	})
	rec.gate.Evaluate()
	return nil
}

func (e *Engine) onTranscript(msg internal_type.TranscriptMessage) error {
	rec := e.current
	if rec == nil {
		return internal_type.ErrNoSession
	}
	if e.sealed(rec, "transcript") {
		return nil
	}
	idx := rec.store.ResolveIndex(msg.Ref, rec.session)
	e.merge(rec, internal_correlation.IndexKey(idx), internal_correlation.Partial{
		Transcripts: map[internal_type.ProviderKey]string{msg.Provider: msg.Text},
	})
	rec.gate.Evaluate()
	return nil
}

// merge folds a partial update into the store and reflects what changed on
// the session timeline and the renderer.
func (e *Engine) merge(rec *recording, key internal_correlation.Key, partial internal_correlation.Partial) {
	res, ok := rec.store.Merge(key, partial)
	if !ok {
		return
	}
	entry := res.Entry
	idx := entry.Index
	rec.session.SetIdentity(idx, entry.LocalID, entry.RemoteID)
	if res.SavedApplied && rec.session.SetMedia(idx, entry.Saved.Media) && rec.store.MarkInserted(key) {
		media := entry.Saved.Media
		slot, _ := rec.session.Slot(idx)
		e.renderer.OnSegmentResolved(idx, &media, slot.WindowStart, slot.WindowEnd)
	}
	for _, p := range res.Changed {
		if _, ok := rec.enabled[p]; !ok {
			e.logger.Debugf("engine: ignoring result from disabled provider %s for segment %d", p, idx)
			continue
		}
		text := entry.Transcripts[p]
		rec.session.SetTranscript(idx, p, text)
		rec.supervisor.Cancel(idx, p)
		e.renderer.OnProviderText(idx, p, text)
	}
}

func (e *Engine) onTimeout(rec *recording, key internal_timeout.Key) {
	if e.sealed(rec, "deadline") {
		return
	}
	if rec.session.MarkTimedOut(key.Index, key.Provider) {
		e.renderer.OnProviderText(key.Index, key.Provider, internal_type.TimeoutSentinel)
	}
	rec.gate.Evaluate()
}

// finalize runs once per recording when the gate completes.
func (e *Engine) finalize(rec *recording) {
	fullText := rec.session.RecomputeFullText()
	rec.session.MarkFinalized(e.clock.Now())
	if n := rec.supervisor.CancelAll(); n > 0 {
		e.logger.Debugf("engine: cancelled %d outstanding deadline(s)", n)
	}
	e.logger.Infof("engine: recording %s finalized", rec.session.ID())
	e.renderer.OnSessionFinalized(rec.session.ID(), fullText)

	if e.summarizer != nil {
		go func() {
			summaries := internal_summarizer.SummarizeAll(rec.ctx, e.logger, e.summarizer, fullText)
			if len(summaries) == 0 {
				return
			}
			e.post(func() {
				rec.session.SetSummaries(summaries)
				e.renderer.OnSessionSummarized(rec.session.ID(), summaries)
			})
		}()
	}
	if e.exportOnFinalize && e.exporter != nil {
		go func() {
			if _, err := e.export(rec.ctx, rec); err != nil {
				e.logger.Errorf("engine: export of %s failed: %v", rec.session.ID(), err)
			}
		}()
	}
}

func (e *Engine) export(ctx context.Context, rec *recording) (string, error) {
	url, err := internal_transport.WaitExport(ctx, e.exporter, rec.session.ID(), e.exportInterval)
	if err != nil {
		return "", err
	}
	e.post(func() { rec.session.SetExportURL(url) })
	return url, nil
}

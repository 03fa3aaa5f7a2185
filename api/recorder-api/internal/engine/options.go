// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_engine

import (
	"time"

	"github.com/jonboulle/clockwork"
	internal_provider "github.com/rapidaai/segscribe/api/recorder-api/internal/provider"
	internal_summarizer "github.com/rapidaai/segscribe/api/recorder-api/internal/summarizer"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
)

type Option func(*Engine)

func WithClock(clk clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clk }
}

func WithDevice(device internal_type.CaptureDevice) Option {
	return func(e *Engine) { e.device = device }
}

func WithTransport(transport internal_type.Transport) Option {
	return func(e *Engine) { e.transport = transport }
}

// WithExporter enables full-recording export. When onFinalize is set the
// export also runs automatically once a session completes.
func WithExporter(exporter internal_type.Exporter, onFinalize bool) Option {
	return func(e *Engine) {
		e.exporter = exporter
		e.exportOnFinalize = onFinalize
	}
}

func WithExportInterval(d time.Duration) Option {
	return func(e *Engine) { e.exportInterval = d }
}

func WithRenderer(renderer internal_type.Renderer) Option {
	return func(e *Engine) { e.renderer = renderer }
}

func WithSummarizer(s internal_summarizer.Summarizer) Option {
	return func(e *Engine) { e.summarizer = s }
}

func WithRegistry(registry *internal_provider.Registry) Option {
	return func(e *Engine) { e.registry = registry }
}

func WithSegmentDuration(d time.Duration) Option {
	return func(e *Engine) { e.segmentDuration = d }
}

func WithTimeoutMargin(d time.Duration) Option {
	return func(e *Engine) { e.timeoutMargin = d }
}

func WithTimeoutFloor(d time.Duration) Option {
	return func(e *Engine) { e.timeoutFloor = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

func WithUploadTimeout(d time.Duration) Option {
	return func(e *Engine) { e.uploadTimeout = d }
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_renderer

import (
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
)

type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventSegmentResolved   EventType = "segment_resolved"
	EventProviderText      EventType = "provider_text"
	EventCaptureHalted     EventType = "capture_halted"
	EventSessionFinalized  EventType = "session_finalized"
	EventSessionSummarized EventType = "session_summarized"
)

// Event is the wire form of a renderer callback, as sent to UI clients.
type Event struct {
	Type              EventType                            `json:"type"`
	SessionID         string                               `json:"session_id,omitempty"`
	Index             *int                                 `json:"idx,omitempty"`
	Provider          internal_type.ProviderKey            `json:"provider,omitempty"`
	Text              string                               `json:"text,omitempty"`
	TimedOut          bool                                 `json:"timed_out,omitempty"`
	Media             *internal_type.MediaRef              `json:"media,omitempty"`
	WindowStartMs     int64                                `json:"window_start_ms,omitempty"`
	WindowEndMs       int64                                `json:"window_end_ms,omitempty"`
	Elapsed           string                               `json:"elapsed,omitempty"`
	SegmentDurationMs int64                                `json:"segment_duration_ms,omitempty"`
	FullText          map[internal_type.ProviderKey]string `json:"full_text,omitempty"`
	Summaries         map[internal_type.ProviderKey]string `json:"summaries,omitempty"`
	Error             string                               `json:"error,omitempty"`
}

// Publisher delivers events somewhere. Publish must not block.
type Publisher interface {
	Publish(e Event)
}

type eventRenderer struct {
	publisher Publisher
	sessionID string
}

// NewEventRenderer turns renderer callbacks into events for a publisher.
func NewEventRenderer(publisher Publisher) internal_type.Renderer {
	return &eventRenderer{publisher: publisher}
}

func (r *eventRenderer) OnSessionStarted(sessionID string, segmentDuration time.Duration) {
	r.sessionID = sessionID
	r.publisher.Publish(Event{
		Type:              EventSessionStarted,
		SessionID:         sessionID,
		SegmentDurationMs: segmentDuration.Milliseconds(),
	})
}

func (r *eventRenderer) OnSegmentResolved(index int, media *internal_type.MediaRef, windowStart, windowEnd time.Duration) {
	e := Event{
		Type:          EventSegmentResolved,
		SessionID:     r.sessionID,
		Index:         &index,
		WindowStartMs: windowStart.Milliseconds(),
		WindowEndMs:   windowEnd.Milliseconds(),
		Elapsed:       internal_type.FormatElapsed(windowStart),
	}
	if media != nil {
		m := *media
		e.Media = &m
	}
	r.publisher.Publish(e)
}

func (r *eventRenderer) OnProviderText(index int, provider internal_type.ProviderKey, text string) {
	r.publisher.Publish(Event{
		Type:      EventProviderText,
		SessionID: r.sessionID,
		Index:     &index,
		Provider:  provider,
		Text:      text,
		TimedOut:  text == internal_type.TimeoutSentinel,
	})
}

func (r *eventRenderer) OnCaptureHalted(sessionID string, err error) {
	e := Event{Type: EventCaptureHalted, SessionID: sessionID}
	if err != nil {
		e.Error = err.Error()
	}
	r.publisher.Publish(e)
}

func (r *eventRenderer) OnSessionFinalized(sessionID string, fullText map[internal_type.ProviderKey]string) {
	r.publisher.Publish(Event{Type: EventSessionFinalized, SessionID: sessionID, FullText: copyText(fullText)})
}

func (r *eventRenderer) OnSessionSummarized(sessionID string, summaries map[internal_type.ProviderKey]string) {
	r.publisher.Publish(Event{Type: EventSessionSummarized, SessionID: sessionID, Summaries: copyText(summaries)})
}

func copyText(in map[internal_type.ProviderKey]string) map[internal_type.ProviderKey]string {
	out := make(map[internal_type.ProviderKey]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
)

type SlotView struct {
	Index         int                     `json:"idx"`
	LocalID       string                  `json:"id,omitempty"`
	RemoteID      string                  `json:"segment_id,omitempty"`
	Media         *internal_type.MediaRef `json:"media,omitempty"`
	WindowStartMs int64                   `json:"window_start_ms"`
	WindowEndMs   int64                   `json:"window_end_ms"`
	Elapsed       string                  `json:"elapsed"`
	Placeholder   bool                    `json:"placeholder,omitempty"`
}

// Snapshot is a detached copy of a session, safe to hand to other goroutines.
type Snapshot struct {
	ID                string                                 `json:"id"`
	State             string                                 `json:"state"`
	StartedAt         time.Time                              `json:"started_at"`
	StoppedAt         *time.Time                             `json:"stopped_at,omitempty"`
	FinalizedAt       *time.Time                             `json:"finalized_at,omitempty"`
	SegmentDurationMs int64                                  `json:"segment_duration_ms"`
	Providers         []internal_type.ProviderKey            `json:"providers"`
	Slots             []SlotView                             `json:"slots"`
	Transcripts       map[internal_type.ProviderKey][]string `json:"transcripts"`
	TimedOut          map[internal_type.ProviderKey][]int    `json:"timed_out,omitempty"`
	FullText          map[internal_type.ProviderKey]string   `json:"full_text,omitempty"`
	Summaries         map[internal_type.ProviderKey]string   `json:"summaries,omitempty"`
	InFlight          int                                    `json:"in_flight"`
	CaptureError      string                                 `json:"capture_error,omitempty"`
	ExportURL         string                                 `json:"export_url,omitempty"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:                s.id,
		StartedAt:         s.startedAt,
		StoppedAt:         timePtr(s.stoppedAt),
		FinalizedAt:       timePtr(s.finalizedAt),
		SegmentDurationMs: s.segmentDuration.Milliseconds(),
		Providers:         s.Providers(),
		Slots:             make([]SlotView, 0, len(s.slots)),
		Transcripts:       make(map[internal_type.ProviderKey][]string, len(s.transcripts)),
		TimedOut:          make(map[internal_type.ProviderKey][]int),
		FullText:          s.FullText(),
		Summaries:         make(map[internal_type.ProviderKey]string, len(s.summaries)),
		ExportURL:         s.exportURL,
	}
	for _, slot := range s.slots {
		view := SlotView{
			Index:         slot.Index,
			LocalID:       slot.LocalID,
			RemoteID:      slot.RemoteID,
			WindowStartMs: slot.WindowStart.Milliseconds(),
			WindowEndMs:   slot.WindowEnd.Milliseconds(),
			Elapsed:       internal_type.FormatElapsed(slot.WindowStart),
			Placeholder:   slot.Placeholder,
		}
		if slot.Media != nil {
			media := *slot.Media
			view.Media = &media
		}
		snap.Slots = append(snap.Slots, view)
	}
	for _, p := range s.sortedProviders() {
		snap.Transcripts[p] = s.Transcripts(p)
		for idx := range s.transcripts[p] {
			if s.TimedOut(idx, p) {
				snap.TimedOut[p] = append(snap.TimedOut[p], idx)
			}
		}
	}
	for k, v := range s.summaries {
		snap.Summaries[k] = v
	}
	if s.captureErr != nil {
		snap.CaptureError = s.captureErr.Error()
	}
	return snap
}

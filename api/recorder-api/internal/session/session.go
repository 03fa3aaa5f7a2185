// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"sort"
	"strings"
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/utils"
)

// Slot is one position on the session timeline. A placeholder is a slot that
// exists only to keep indices dense and has received no data yet.
type Slot struct {
	Index       int
	LocalID     string
	RemoteID    string
	Media       *internal_type.MediaRef
	WindowStart time.Duration
	WindowEnd   time.Duration
	Placeholder bool
}

// Session is the state of one start/stop recording cycle. It is not safe for
// concurrent use; the engine owns it from a single goroutine.
type Session struct {
	id              string
	startedAt       time.Time
	stoppedAt       time.Time
	finalizedAt     time.Time
	segmentDuration time.Duration
	providers       []internal_type.ProviderKey

	slots       []*Slot
	captured    int
	transcripts map[internal_type.ProviderKey][]string
	timedOut    map[internal_type.ProviderKey]map[int]struct{}
	fullText    map[internal_type.ProviderKey]string
	summaries   map[internal_type.ProviderKey]string

	captureErr error
	exportURL  string
}

func New(id string, startedAt time.Time, segmentDuration time.Duration, providers []internal_type.ProviderKey) *Session {
	s := &Session{
		id:              id,
		startedAt:       startedAt,
		segmentDuration: segmentDuration,
		providers:       append([]internal_type.ProviderKey(nil), providers...),
		captured:        internal_type.NoIndex,
		transcripts:     make(map[internal_type.ProviderKey][]string, len(providers)),
		timedOut:        make(map[internal_type.ProviderKey]map[int]struct{}),
		fullText:        make(map[internal_type.ProviderKey]string),
		summaries:       make(map[internal_type.ProviderKey]string),
	}
	for _, p := range providers {
		s.transcripts[p] = []string{}
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// SegmentDuration is fixed for the lifetime of the session.
func (s *Session) SegmentDuration() time.Duration {
	return s.segmentDuration
}

func (s *Session) Providers() []internal_type.ProviderKey {
	return append([]internal_type.ProviderKey(nil), s.providers...)
}

func (s *Session) ensure(idx int) *Slot {
	for len(s.slots) <= idx {
		n := len(s.slots)
		s.slots = append(s.slots, &Slot{
			Index:       n,
			WindowStart: time.Duration(n) * s.segmentDuration,
			WindowEnd:   time.Duration(n+1) * s.segmentDuration,
			Placeholder: true,
		})
	}
	return s.slots[idx]
}

func (s *Session) touch(idx int) *Slot {
	slot := s.ensure(idx)
	slot.Placeholder = false
	return slot
}

// AddSegment records a captured window at its index.
func (s *Session) AddSegment(seg internal_type.Segment) {
	slot := s.touch(seg.Index)
	slot.LocalID = seg.LocalID
	slot.WindowStart = seg.WindowStart
	slot.WindowEnd = seg.WindowEnd
	if seg.Index > s.captured {
		s.captured = seg.Index
	}
}

// Append allocates a new slot past the end of the timeline.
func (s *Session) Append() int {
	idx := len(s.slots)
	s.touch(idx)
	return idx
}

func (s *Session) LookupLocalID(localID string) (int, bool) {
	if localID == "" {
		return internal_type.NoIndex, false
	}
	for _, slot := range s.slots {
		if slot.LocalID == localID {
			return slot.Index, true
		}
	}
	return internal_type.NoIndex, false
}

func (s *Session) Slot(idx int) (Slot, bool) {
	if idx < 0 || idx >= len(s.slots) {
		return Slot{}, false
	}
	return *s.slots[idx], true
}

func (s *Session) SlotCount() int {
	return len(s.slots)
}

// HighestCapturedIndex is the last window the capture loop produced, or
// NoIndex. Slots appended for unknown messages never move it.
func (s *Session) HighestCapturedIndex() int {
	return s.captured
}

// HighestSlotIndex returns the highest non-placeholder index, or NoIndex.
func (s *Session) HighestSlotIndex() int {
	for i := len(s.slots) - 1; i >= 0; i-- {
		if !s.slots[i].Placeholder {
			return i
		}
	}
	return internal_type.NoIndex
}

func (s *Session) SetIdentity(idx int, localID, remoteID string) {
	slot := s.touch(idx)
	if slot.LocalID == "" {
		slot.LocalID = localID
	}
	if slot.RemoteID == "" {
		slot.RemoteID = remoteID
	}
}

// SetMedia stores the media reference of a slot. Only the first write is
// kept; it reports whether this call stored it.
func (s *Session) SetMedia(idx int, media internal_type.MediaRef) bool {
	slot := s.touch(idx)
	if slot.Media != nil {
		return false
	}
	slot.Media = &media
	return true
}

func (s *Session) extend(p internal_type.ProviderKey, idx int) []string {
	arr := s.transcripts[p]
	for len(arr) <= idx {
		arr = append(arr, "")
	}
	s.transcripts[p] = arr
	return arr
}

// SetTranscript writes a provider result, replacing any earlier value or
// timeout marker at that index.
func (s *Session) SetTranscript(idx int, p internal_type.ProviderKey, text string) {
	s.touch(idx)
	arr := s.extend(p, idx)
	arr[idx] = text
	if marks, ok := s.timedOut[p]; ok {
		delete(marks, idx)
	}
}

// MarkTimedOut records that a provider gave up on a segment. The transcript
// cell becomes an empty entry so the timeline is complete. It reports false
// when a result is already present.
func (s *Session) MarkTimedOut(idx int, p internal_type.ProviderKey) bool {
	if text, ok := s.TranscriptCell(idx, p); ok && text != "" {
		return false
	}
	s.extend(p, idx)
	marks, ok := s.timedOut[p]
	if !ok {
		marks = make(map[int]struct{})
		s.timedOut[p] = marks
	}
	marks[idx] = struct{}{}
	return true
}

func (s *Session) TimedOut(idx int, p internal_type.ProviderKey) bool {
	_, ok := s.timedOut[p][idx]
	return ok
}

func (s *Session) TranscriptCell(idx int, p internal_type.ProviderKey) (string, bool) {
	arr := s.transcripts[p]
	if idx < 0 || idx >= len(arr) {
		return "", false
	}
	return arr[idx], true
}

func (s *Session) TranscriptLen(p internal_type.ProviderKey) int {
	return len(s.transcripts[p])
}

func (s *Session) Transcripts(p internal_type.ProviderKey) []string {
	return append([]string{}, s.transcripts[p]...)
}

// RecomputeFullText joins the non-empty entries of every provider in index
// order. Calling it again on unchanged arrays gives the same result.
func (s *Session) RecomputeFullText() map[internal_type.ProviderKey]string {
	for p, arr := range s.transcripts {
		parts := make([]string, 0, len(arr))
		for _, text := range arr {
			if utils.IsEmpty(text) {
				continue
			}
			parts = append(parts, strings.TrimSpace(text))
		}
		s.fullText[p] = strings.TrimSpace(strings.Join(parts, " "))
	}
	return s.FullText()
}

func (s *Session) FullText() map[internal_type.ProviderKey]string {
	out := make(map[internal_type.ProviderKey]string, len(s.fullText))
	for k, v := range s.fullText {
		out[k] = v
	}
	return out
}

func (s *Session) SetSummaries(summaries map[internal_type.ProviderKey]string) {
	for k, v := range summaries {
		s.summaries[k] = v
	}
}

func (s *Session) MarkStopped(at time.Time) {
	if s.stoppedAt.IsZero() {
		s.stoppedAt = at
	}
}

func (s *Session) IsStopped() bool {
	return !s.stoppedAt.IsZero()
}

func (s *Session) MarkFinalized(at time.Time) {
	if s.finalizedAt.IsZero() {
		s.finalizedAt = at
	}
}

func (s *Session) IsFinalized() bool {
	return !s.finalizedAt.IsZero()
}

func (s *Session) SetCaptureError(err error) {
	if s.captureErr == nil {
		s.captureErr = err
	}
}

func (s *Session) CaptureError() error {
	return s.captureErr
}

func (s *Session) SetExportURL(url string) {
	s.exportURL = url
}

func (s *Session) sortedProviders() []internal_type.ProviderKey {
	keys := make([]internal_type.ProviderKey, 0, len(s.transcripts))
	for k := range s.transcripts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

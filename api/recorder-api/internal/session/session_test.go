// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"testing"
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	google = internal_type.ProviderGoogle
	vertex = internal_type.ProviderVertex
)

func newTestSession(providers ...internal_type.ProviderKey) *Session {
	return New("rec-1", time.Unix(1700000000, 0), 10*time.Second, providers)
}

func segment(idx int, localID string) internal_type.Segment {
	return internal_type.Segment{
		Index:       idx,
		LocalID:     localID,
		WindowStart: time.Duration(idx) * 10 * time.Second,
		WindowEnd:   time.Duration(idx+1) * 10 * time.Second,
	}
}

func TestSession_SlotsStayDense(t *testing.T) {
	s := newTestSession(google)
	s.AddSegment(segment(2, "c"))
	s.AddSegment(segment(0, "a"))

	require.Equal(t, 3, s.SlotCount())
	slot, ok := s.Slot(1)
	require.True(t, ok)
	assert.True(t, slot.Placeholder)
	assert.Equal(t, 10*time.Second, slot.WindowStart)
	assert.Equal(t, 2, s.HighestSlotIndex())

	s.AddSegment(segment(1, "b"))
	slot, _ = s.Slot(1)
	assert.False(t, slot.Placeholder)
	assert.Equal(t, "b", slot.LocalID)
}

func TestSession_HighestSlotIgnoresPlaceholders(t *testing.T) {
	s := newTestSession(google)
	assert.Equal(t, internal_type.NoIndex, s.HighestSlotIndex())
	s.AddSegment(segment(0, "a"))
	assert.Equal(t, 0, s.HighestSlotIndex())
}

func TestSession_AppendDoesNotMoveCapturedIndex(t *testing.T) {
	s := newTestSession(google)
	assert.Equal(t, internal_type.NoIndex, s.HighestCapturedIndex())
	s.AddSegment(segment(1, "b"))
	s.AddSegment(segment(0, "a"))
	assert.Equal(t, 1, s.HighestCapturedIndex())

	assert.Equal(t, 2, s.Append())
	s.SetTranscript(3, google, "stray")
	assert.Equal(t, 1, s.HighestCapturedIndex())
	assert.Equal(t, 3, s.HighestSlotIndex())
}

func TestSession_LookupLocalIDAndAppend(t *testing.T) {
	s := newTestSession(google)
	s.AddSegment(segment(0, "100"))
	s.AddSegment(segment(1, "101"))

	idx, ok := s.LookupLocalID("101")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = s.LookupLocalID("999")
	assert.False(t, ok)
	_, ok = s.LookupLocalID("")
	assert.False(t, ok)

	assert.Equal(t, 2, s.Append())
	assert.Equal(t, 3, s.SlotCount())
}

func TestSession_MediaFirstWriteWins(t *testing.T) {
	s := newTestSession(google)
	s.AddSegment(segment(0, "a"))

	assert.True(t, s.SetMedia(0, internal_type.MediaRef{URL: "/a.webm", Mime: "audio/webm", Size: 10}))
	assert.False(t, s.SetMedia(0, internal_type.MediaRef{URL: "/b.webm"}))
	slot, _ := s.Slot(0)
	assert.Equal(t, "/a.webm", slot.Media.URL)
}

func TestSession_TranscriptsAreIndexAligned(t *testing.T) {
	s := newTestSession(google)
	s.SetTranscript(1, google, "hello")
	assert.Equal(t, []string{"", "hello"}, s.Transcripts(google))

	s.SetTranscript(0, google, "hi")
	s.SetTranscript(1, google, "hello again")
	assert.Equal(t, []string{"hi", "hello again"}, s.Transcripts(google))
	assert.Equal(t, 2, s.SlotCount())
}

func TestSession_TimeoutMarker(t *testing.T) {
	s := newTestSession(vertex)
	s.AddSegment(segment(0, "a"))
	s.AddSegment(segment(1, "b"))
	s.AddSegment(segment(2, "c"))

	assert.True(t, s.MarkTimedOut(2, vertex))
	assert.True(t, s.TimedOut(2, vertex))
	assert.Equal(t, 3, s.TranscriptLen(vertex))
	text, ok := s.TranscriptCell(2, vertex)
	assert.True(t, ok)
	assert.Equal(t, "", text)

	// a late result replaces the marker
	s.SetTranscript(2, vertex, "late")
	assert.False(t, s.TimedOut(2, vertex))
	assert.False(t, s.MarkTimedOut(2, vertex))
}

func TestSession_RecomputeFullTextIsIdempotent(t *testing.T) {
	s := newTestSession(google, vertex)
	s.SetTranscript(0, google, "hi")
	s.SetTranscript(1, google, "hello ")
	s.SetTranscript(2, google, "")
	s.SetTranscript(1, vertex, "  ")

	first := s.RecomputeFullText()
	second := s.RecomputeFullText()
	assert.Equal(t, first, second)
	assert.Equal(t, "hi hello", first[google])
	assert.Equal(t, "", first[vertex])
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	s := newTestSession(google)
	s.AddSegment(segment(0, "a"))
	s.SetMedia(0, internal_type.MediaRef{URL: "/a.wav"})
	s.SetTranscript(0, google, "hi")
	s.MarkTimedOut(1, google)
	s.MarkStopped(time.Unix(1700000030, 0))

	snap := s.Snapshot()
	snap.Transcripts[google][0] = "mutated"
	snap.Slots[0].Media.URL = "mutated"

	assert.Equal(t, []string{"hi", ""}, s.Transcripts(google))
	slot, _ := s.Slot(0)
	assert.Equal(t, "/a.wav", slot.Media.URL)
	assert.Equal(t, []int{1}, snap.TimedOut[google])
	assert.NotNil(t, snap.StoppedAt)
	assert.Nil(t, snap.FinalizedAt)
	assert.Equal(t, int64(10000), snap.SegmentDurationMs)
	assert.Equal(t, "0:00", snap.Slots[0].Elapsed)
}

func TestSession_StopAndFinalizeKeepFirstTime(t *testing.T) {
	s := newTestSession(google)
	first := time.Unix(1700000010, 0)
	s.MarkStopped(first)
	s.MarkStopped(first.Add(time.Minute))
	s.MarkFinalized(first)

	assert.True(t, s.IsStopped())
	assert.True(t, s.IsFinalized())
	assert.Equal(t, first, *s.Snapshot().StoppedAt)
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"fmt"
	"time"
)

// NoIndex marks a message that does not carry a sequence index.
const NoIndex = -1

// TimeoutSentinel is shown in place of a provider transcript that never arrived.
const TimeoutSentinel = "no result (timeout)"

// MediaRef points at the stored audio of one segment.
type MediaRef struct {
	URL  string `json:"url"`
	Mime string `json:"mime"`
	Size int64  `json:"size"`
}

// Segment is one captured window of the recording.
type Segment struct {
	Index       int
	LocalID     string
	Data        []byte
	Mime        string
	WindowStart time.Duration
	WindowEnd   time.Duration
	CapturedAt  time.Time
}

func (s Segment) Duration() time.Duration {
	return s.WindowEnd - s.WindowStart
}

// FormatElapsed renders an offset as m:ss.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Ref is the subset of identifiers an inbound message may carry. Index 0 is
// a real segment, so a zero Ref addresses slot 0; build refs without an index
// through RefByID.
type Ref struct {
	Index    int
	LocalID  string
	RemoteID string
}

// RefByID addresses a segment by its identifiers only.
func RefByID(localID, remoteID string) Ref {
	return Ref{Index: NoIndex, LocalID: localID, RemoteID: remoteID}
}

// RefAt addresses a segment by its sequence index.
func RefAt(index int) Ref {
	return Ref{Index: index}
}

func (r Ref) HasIndex() bool {
	return r.Index >= 0
}

// SavedMessage confirms a segment has been stored remotely.
type SavedMessage struct {
	Ref
	Media MediaRef
}

// TranscriptMessage carries one provider's text for a segment.
type TranscriptMessage struct {
	Ref
	Provider ProviderKey
	Text     string
}

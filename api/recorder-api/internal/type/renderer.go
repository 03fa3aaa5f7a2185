// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "time"

// Renderer is notified of every change the engine makes to a session.
// Calls happen on the engine loop and must not block.
type Renderer interface {
	OnSessionStarted(sessionID string, segmentDuration time.Duration)
	OnSegmentResolved(index int, media *MediaRef, windowStart, windowEnd time.Duration)
	// OnProviderText receives TimeoutSentinel when a provider gave up on a segment.
	OnProviderText(index int, provider ProviderKey, text string)
	OnCaptureHalted(sessionID string, err error)
	OnSessionFinalized(sessionID string, fullText map[ProviderKey]string)
	OnSessionSummarized(sessionID string, summaries map[ProviderKey]string)
}

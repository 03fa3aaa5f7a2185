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

type multiRenderer []internal_type.Renderer

// Multi fans every callback out to each renderer in order.
func Multi(renderers ...internal_type.Renderer) internal_type.Renderer {
	out := make(multiRenderer, 0, len(renderers))
	for _, r := range renderers {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRenderer) OnSessionStarted(sessionID string, segmentDuration time.Duration) {
	for _, r := range m {
		r.OnSessionStarted(sessionID, segmentDuration)
	}
}

func (m multiRenderer) OnSegmentResolved(index int, media *internal_type.MediaRef, windowStart, windowEnd time.Duration) {
	for _, r := range m {
		r.OnSegmentResolved(index, media, windowStart, windowEnd)
	}
}

func (m multiRenderer) OnProviderText(index int, provider internal_type.ProviderKey, text string) {
	for _, r := range m {
		r.OnProviderText(index, provider, text)
	}
}

func (m multiRenderer) OnCaptureHalted(sessionID string, err error) {
	for _, r := range m {
		r.OnCaptureHalted(sessionID, err)
	}
}

func (m multiRenderer) OnSessionFinalized(sessionID string, fullText map[internal_type.ProviderKey]string) {
	for _, r := range m {
		r.OnSessionFinalized(sessionID, fullText)
	}
}

func (m multiRenderer) OnSessionSummarized(sessionID string, summaries map[internal_type.ProviderKey]string) {
	for _, r := range m {
		r.OnSessionSummarized(sessionID, summaries)
	}
}

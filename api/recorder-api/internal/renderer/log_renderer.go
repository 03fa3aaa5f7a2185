// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_renderer

import (
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

type logRenderer struct {
	logger commons.Logger
}

func NewLogRenderer(logger commons.Logger) internal_type.Renderer {
	return &logRenderer{logger: logger}
}

func (r *logRenderer) OnSessionStarted(sessionID string, segmentDuration time.Duration) {
	r.logger.Infof("recording %s started, segments of %s", sessionID, segmentDuration)
}

func (r *logRenderer) OnSegmentResolved(index int, media *internal_type.MediaRef, windowStart, windowEnd time.Duration) {
	url := ""
	if media != nil {
		url = media.URL
	}
	r.logger.Infof("segment %d [%s-%s] saved at %s", index,
		internal_type.FormatElapsed(windowStart), internal_type.FormatElapsed(windowEnd), url)
}

func (r *logRenderer) OnProviderText(index int, provider internal_type.ProviderKey, text string) {
	r.logger.Debugf("segment %d %s: %q", index, provider, text)
}

func (r *logRenderer) OnCaptureHalted(sessionID string, err error) {
	r.logger.Errorf("recording %s lost its capture device: %v", sessionID, err)
}

func (r *logRenderer) OnSessionFinalized(sessionID string, fullText map[internal_type.ProviderKey]string) {
	r.logger.Infof("recording %s finalized for %d provider(s)", sessionID, len(fullText))
}

func (r *logRenderer) OnSessionSummarized(sessionID string, summaries map[internal_type.ProviderKey]string) {
	r.logger.Infof("recording %s summarized for %d provider(s)", sessionID, len(summaries))
}

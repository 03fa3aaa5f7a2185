// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderFromMessageType(t *testing.T) {
	tests := []struct {
		msgType  string
		expected ProviderKey
		ok       bool
	}{
		{"segment_transcript", ProviderGoogle, true},
		{"segment_transcript_vertex", ProviderVertex, true},
		{"segment_transcript_gemini", ProviderGemini, true},
		{"segment_transcript_aws", ProviderAWS, true},
		{"segment_transcript_", "", false},
		{"segment_transcriptx", "", false},
		{"segment_saved", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			p, ok := ProviderFromMessageType(tt.msgType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:00", FormatElapsed(0))
	assert.Equal(t, "0:10", FormatElapsed(10*time.Second))
	assert.Equal(t, "1:05", FormatElapsed(65*time.Second))
	assert.Equal(t, "0:00", FormatElapsed(-time.Second))
}

func TestErrorsUnwrap(t *testing.T) {
	uploadErr := &UploadError{Index: 2, LocalID: "17", Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(uploadErr, io.ErrUnexpectedEOF))
	assert.Contains(t, uploadErr.Error(), "segment 2")

	captureErr := &CaptureError{Index: 4, Err: io.ErrClosedPipe}
	var target *CaptureError
	assert.True(t, errors.As(error(captureErr), &target))
	assert.Equal(t, 4, target.Index)
}

func TestRefConstructors(t *testing.T) {
	// the zero value addresses slot 0
	assert.True(t, Ref{}.HasIndex())

	byID := RefByID("1700000000000", "srv-3")
	assert.False(t, byID.HasIndex())
	assert.Equal(t, "1700000000000", byID.LocalID)
	assert.Equal(t, "srv-3", byID.RemoteID)

	at := RefAt(4)
	assert.True(t, at.HasIndex())
	assert.Equal(t, 4, at.Index)
	assert.Empty(t, at.LocalID)
}

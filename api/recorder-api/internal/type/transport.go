// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"context"
	"time"
)

type UploadRequest struct {
	SessionID  string
	Index      int
	LocalID    string
	Duration   time.Duration
	Mime       string
	Data       []byte
	CapturedAt time.Time
}

type UploadResult struct {
	RemoteID        string
	Media           *MediaRef
	ProviderResults map[ProviderKey]string
}

// Transport uploads a single segment and returns whatever the processor
// produced synchronously. Further results may arrive later as messages.
type Transport interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

type ExportState string

const (
	ExportPending ExportState = "pending"
	ExportDone    ExportState = "done"
	ExportError   ExportState = "error"
)

type ExportStatus struct {
	State ExportState
	URL   string
	JobID string
}

type Exporter interface {
	ExportFull(ctx context.Context, sessionID string) (*ExportStatus, error)
	PollExportStatus(ctx context.Context, jobID string) (*ExportStatus, error)
}

// MessageHandler receives asynchronous results pushed by the processor.
type MessageHandler interface {
	HandleSegmentSaved(ctx context.Context, msg SavedMessage) error
	HandleTranscript(ctx context.Context, msg TranscriptMessage) error
}

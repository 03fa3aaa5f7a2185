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

type ChunkHandle uint64

type Chunk struct {
	Data []byte
	Mime string
}

// CaptureDevice produces one binary chunk per window. Windows may overlap:
// the next window is started before the previous one is stopped.
type CaptureDevice interface {
	StartWindow(ctx context.Context, duration time.Duration) (ChunkHandle, error)
	StopWindow(handle ChunkHandle) (Chunk, error)
}

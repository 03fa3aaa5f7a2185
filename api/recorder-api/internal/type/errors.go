// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"errors"
	"fmt"
)

var (
	ErrCorrelationMiss = errors.New("message does not reference a known segment")
	ErrProviderTimeout = errors.New("provider did not return a result before the deadline")
	ErrSessionActive   = errors.New("a recording session is already capturing")
	ErrNoSession       = errors.New("no recording session")
	ErrEngineClosed    = errors.New("engine closed")
	ErrNoDevice        = errors.New("no capture device configured")
	ErrExportDisabled  = errors.New("export is not configured")
)

// UploadError is returned when a segment upload fails. The segment keeps no
// media reference and is not retried.
type UploadError struct {
	Index   int
	LocalID string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of segment %d (%s) failed: %v", e.Index, e.LocalID, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// CaptureError is returned when the device could not start a window. Capture
// halts after it.
type CaptureError struct {
	Index int
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture could not start window %d: %v", e.Index, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

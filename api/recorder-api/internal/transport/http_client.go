// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const (
	segmentUploadPath = "/segment_upload"
	exportFullPath    = "/export_full"
	exportStatusPath  = "/export_status/{jobId}"
)

// ProcessorError is a non-success answer from the remote processor.
type ProcessorError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"error"`
}

func (e ProcessorError) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return "undefined error"
	}
	return string(b)
}

type uploadPayload struct {
	RecordingID string `json:"recording_id"`
	AudioB64    string `json:"audio_b64"`
	Mime        string `json:"mime"`
	DurationMs  int64  `json:"duration_ms"`
	ID          string `json:"id"`
	Idx         int    `json:"idx"`
	Ts          int64  `json:"ts"`
}

type savedPayload struct {
	URL       string `json:"url"`
	Mime      string `json:"mime"`
	Size      int64  `json:"size"`
	SegmentID string `json:"segment_id"`
	Sid       string `json:"sid"`
	ServerID  string `json:"server_id"`
}

type uploadResponse struct {
	Ok        bool              `json:"ok"`
	Error     string            `json:"error"`
	Saved     *savedPayload     `json:"saved"`
	Results   map[string]string `json:"results"`
	SegmentID string            `json:"segment_id"`
	Sid       string            `json:"sid"`
	ServerID  string            `json:"server_id"`
}

// remoteID picks the first of the aliases the processor uses for its id.
func remoteID(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

type exportResponse struct {
	Ok     bool   `json:"ok"`
	Error  string `json:"error"`
	URL    string `json:"url"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// HTTPClient talks to the remote processor over plain HTTP+JSON.
type HTTPClient struct {
	logger commons.Logger
	client *resty.Client
}

func NewHTTPClient(logger commons.Logger, baseURL string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPClient{logger: logger, client: client}
}

func (c *HTTPClient) failure(status int, msg string) error {
	if msg == "" {
		msg = "request rejected"
	}
	return ProcessorError{StatusCode: status, Message: msg}
}

func (c *HTTPClient) Upload(ctx context.Context, req internal_type.UploadRequest) (*internal_type.UploadResult, error) {
	mime := req.Mime
	if mime == "" {
		mime = "audio/wav"
	}
	payload := uploadPayload{
		RecordingID: req.SessionID,
		AudioB64:    base64.StdEncoding.EncodeToString(req.Data),
		Mime:        mime,
		DurationMs:  req.Duration.Milliseconds(),
		ID:          req.LocalID,
		Idx:         req.Index,
		Ts:          req.CapturedAt.UnixMilli(),
	}

	var out uploadResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		SetError(&out).
		Post(segmentUploadPath)
	if err != nil {
		return nil, fmt.Errorf("segment upload: %w", err)
	}
	if resp.IsError() || !out.Ok {
		return nil, c.failure(resp.StatusCode(), out.Error)
	}

	result := &internal_type.UploadResult{
		ProviderResults: make(map[internal_type.ProviderKey]string, len(out.Results)),
	}
	if out.Saved != nil {
		result.Media = &internal_type.MediaRef{URL: out.Saved.URL, Mime: out.Saved.Mime, Size: out.Saved.Size}
		result.RemoteID = remoteID(out.Saved.SegmentID, out.Saved.Sid, out.Saved.ServerID)
	}
	result.RemoteID = remoteID(result.RemoteID, out.SegmentID, out.Sid, out.ServerID)
	for provider, text := range out.Results {
		result.ProviderResults[internal_type.ProviderKey(provider)] = text
	}
	return result, nil
}

func (c *HTTPClient) ExportFull(ctx context.Context, sessionID string) (*internal_type.ExportStatus, error) {
	var out exportResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"recording_id": sessionID}).
		SetResult(&out).
		SetError(&out).
		Post(exportFullPath)
	if err != nil {
		return nil, fmt.Errorf("export full: %w", err)
	}
	if resp.IsError() || !out.Ok {
		return nil, c.failure(resp.StatusCode(), out.Error)
	}
	if out.URL != "" {
		return &internal_type.ExportStatus{State: internal_type.ExportDone, URL: out.URL}, nil
	}
	if out.JobID == "" {
		return nil, errors.New("export full: response carries neither url nor job id")
	}
	return &internal_type.ExportStatus{State: internal_type.ExportPending, JobID: out.JobID}, nil
}

func (c *HTTPClient) PollExportStatus(ctx context.Context, jobID string) (*internal_type.ExportStatus, error) {
	var out exportResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("jobId", jobID).
		SetResult(&out).
		SetError(&out).
		Get(exportStatusPath)
	if err != nil {
		return nil, fmt.Errorf("export status: %w", err)
	}
	if resp.IsError() {
		return nil, c.failure(resp.StatusCode(), out.Error)
	}
	status := &internal_type.ExportStatus{JobID: jobID, URL: out.URL}
	switch internal_type.ExportState(out.Status) {
	case internal_type.ExportDone:
		status.State = internal_type.ExportDone
	case internal_type.ExportError:
		status.State = internal_type.ExportError
	default:
		status.State = internal_type.ExportPending
	}
	return status, nil
}

// WaitExport starts an export and polls it every interval until it settles
// or ctx ends.
func WaitExport(ctx context.Context, exporter internal_type.Exporter, sessionID string, interval time.Duration) (string, error) {
	status, err := exporter.ExportFull(ctx, sessionID)
	if err != nil {
		return "", err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		switch status.State {
		case internal_type.ExportDone:
			return status.URL, nil
		case internal_type.ExportError:
			return "", fmt.Errorf("export job %s failed", status.JobID)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		jobID := status.JobID
		status, err = exporter.PollExportStatus(ctx, jobID)
		if err != nil {
			return "", err
		}
		if status.JobID == "" {
			status.JobID = jobID
		}
	}
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package recording_api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	internal_engine "github.com/rapidaai/segscribe/api/recorder-api/internal/engine"
	internal_provider "github.com/rapidaai/segscribe/api/recorder-api/internal/provider"
	internal_session "github.com/rapidaai/segscribe/api/recorder-api/internal/session"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/config"
	"github.com/rapidaai/segscribe/pkg/commons"
)

// Recorder is the engine surface the control api drives.
type Recorder interface {
	Start(ctx context.Context, opts internal_engine.StartOptions) (string, error)
	Stop(ctx context.Context) error
	Snapshot(ctx context.Context) (internal_session.Snapshot, error)
	Export(ctx context.Context) (string, error)
}

type recordingApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	recorder Recorder
	registry *internal_provider.Registry
	events   http.Handler
}

func New(cfg *config.AppConfig, logger commons.Logger, recorder Recorder, registry *internal_provider.Registry, events http.Handler) *recordingApi {
	return &recordingApi{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		registry: registry,
		events:   events,
	}
}

type startRequest struct {
	SegmentDurationMs int `json:"segment_duration_ms" binding:"omitempty,min=1000,max=300000"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internal_type.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, internal_type.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, internal_type.ErrEngineClosed),
		errors.Is(err, internal_type.ErrNoDevice),
		errors.Is(err, internal_type.ErrExportDisabled):
		return http.StatusServiceUnavailable
	default:
		var captureErr *internal_type.CaptureError
		if errors.As(err, &captureErr) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
}

func (api *recordingApi) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		api.logger.Errorf("recording-api: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(code, gin.H{"ok": false, "error": err.Error()})
}

// Start opens a recording. The body is optional.
func (api *recordingApi) Start(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}
	id, err := api.recorder.Start(c.Request.Context(), internal_engine.StartOptions{
		SegmentDuration: time.Duration(req.SegmentDurationMs) * time.Millisecond,
	})
	if err != nil {
		api.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "recording_id": id})
}

func (api *recordingApi) Stop(c *gin.Context) {
	if err := api.recorder.Stop(c.Request.Context()); err != nil {
		api.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (api *recordingApi) Status(c *gin.Context) {
	snap, err := api.recorder.Snapshot(c.Request.Context())
	if err != nil {
		api.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (api *recordingApi) Export(c *gin.Context) {
	url, err := api.recorder.Export(c.Request.Context())
	if err != nil {
		api.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}

func (api *recordingApi) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": api.registry.List()})
}

// ToggleProvider enables or disables a provider for the next recording.
func (api *recordingApi) ToggleProvider(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	key := internal_type.ProviderKey(c.Param("provider"))
	if err := api.registry.Set(key, *req.Enabled); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "providers": api.registry.List()})
}

// Events upgrades to the websocket event feed.
func (api *recordingApi) Events(c *gin.Context) {
	api.events.ServeHTTP(c.Writer, c.Request)
}

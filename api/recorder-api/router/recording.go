// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package recorder_routers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	recordingApi "github.com/rapidaai/segscribe/api/recorder-api/api/recording"
	internal_provider "github.com/rapidaai/segscribe/api/recorder-api/internal/provider"
	"github.com/rapidaai/segscribe/config"
	"github.com/rapidaai/segscribe/pkg/commons"
)

func RecordingApiRoute(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	recorder recordingApi.Recorder,
	registry *internal_provider.Registry,
	events http.Handler,
) {
	logger.Info("Internal RecordingApiRoute added to engine.")
	apiv1 := engine.Group("v1")
	rApi := recordingApi.New(cfg, logger, recorder, registry, events)
	{
		apiv1.POST("/recording/start", rApi.Start)
		apiv1.POST("/recording/stop", rApi.Stop)
		apiv1.GET("/recording", rApi.Status)
		apiv1.POST("/recording/export", rApi.Export)

		apiv1.GET("/providers", rApi.Providers)
		apiv1.PUT("/providers/:provider", rApi.ToggleProvider)

		apiv1.GET("/events", rApi.Events)
	}
}

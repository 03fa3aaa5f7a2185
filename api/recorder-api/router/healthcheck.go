// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package recorder_routers

import (
	"github.com/gin-gonic/gin"
	healthCheckApi "github.com/rapidaai/segscribe/api/recorder-api/api/health"
	"github.com/rapidaai/segscribe/config"
	"github.com/rapidaai/segscribe/pkg/commons"
)

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, probes ...healthCheckApi.Probe) {
	logger.Info("Internal HealthCheckRoutes added to engine.")
	apiv1 := engine.Group("")
	hcApi := healthCheckApi.New(cfg, logger, probes...)
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}

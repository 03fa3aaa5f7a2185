// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package health_check_api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rapidaai/segscribe/config"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const probeTimeout = 2 * time.Second

// Probe reports whether a dependency is usable.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthCheckApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	probes []Probe
}

func New(cfg *config.AppConfig, logger commons.Logger, probes ...Probe) *healthCheckApi {
	return &healthCheckApi{cfg: cfg, logger: logger, probes: probes}
}

func (h *healthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"healthy": true,
		"service": h.cfg.Name,
		"version": h.cfg.Version,
	})
}

func (h *healthCheckApi) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()
	status := gin.H{}
	ready := true
	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			h.logger.Warnf("readiness: %s failed: %v", p.Name, err)
			status[p.Name] = err.Error()
			ready = false
			continue
		}
		status[p.Name] = "ok"
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ready": ready, "dependencies": status})
}

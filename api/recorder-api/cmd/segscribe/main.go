// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	healthCheckApi "github.com/rapidaai/segscribe/api/recorder-api/api/health"
	internal_capture_device "github.com/rapidaai/segscribe/api/recorder-api/internal/capture/device"
	internal_engine "github.com/rapidaai/segscribe/api/recorder-api/internal/engine"
	internal_provider "github.com/rapidaai/segscribe/api/recorder-api/internal/provider"
	internal_renderer "github.com/rapidaai/segscribe/api/recorder-api/internal/renderer"
	internal_summarizer "github.com/rapidaai/segscribe/api/recorder-api/internal/summarizer"
	internal_transport "github.com/rapidaai/segscribe/api/recorder-api/internal/transport"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	recorder_routers "github.com/rapidaai/segscribe/api/recorder-api/router"
	"github.com/rapidaai/segscribe/config"
	"github.com/rapidaai/segscribe/pkg/commons"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("unable to initialize config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("invalid application config: %v", err)
	}
	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		log.Fatalf("unable to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("segscribe stopped: %v", err)
	}
	logger.Info("segscribe shut down cleanly")
}

// openSource returns the raw PCM stream: an external capture command when
// configured, stdin otherwise.
func openSource(ctx context.Context, cfg *config.AppConfig, logger commons.Logger) (io.ReadCloser, error) {
	if cfg.CaptureConfig.Command != "" {
		return internal_capture_device.StartCommand(ctx, logger, cfg.CaptureConfig.Command)
	}
	logger.Infof("capture: reading %d Hz / %d channel PCM from stdin", cfg.CaptureConfig.SampleRate, cfg.CaptureConfig.Channels)
	return io.NopCloser(os.Stdin), nil
}

func run(ctx context.Context, cfg *config.AppConfig, logger commons.Logger) error {
	registry, err := internal_provider.NewRegistry(logger, cfg.Providers())
	if err != nil {
		return err
	}

	source, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer source.Close()
	device := internal_capture_device.NewStreamDevice(logger, source, internal_capture_device.Format{
		SampleRate: cfg.CaptureConfig.SampleRate,
		Channels:   cfg.CaptureConfig.Channels,
	})
	defer device.Close()

	remote := internal_transport.NewHTTPClient(logger, cfg.RemoteConfig.BaseURL, cfg.RemoteTimeout())
	hub := internal_renderer.NewHub(logger)
	defer hub.Close()

	g, gCtx := errgroup.WithContext(ctx)
	renderers := []internal_type.Renderer{
		internal_renderer.NewLogRenderer(logger),
		internal_renderer.NewEventRenderer(hub),
	}
	var probes []healthCheckApi.Probe
	if cfg.RedisConfig.Addr != "" {
		client, err := internal_renderer.ConnectRedis(ctx, cfg.RedisConfig.Addr)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher := internal_renderer.NewRedisPublisher(logger, client, cfg.RedisConfig.Channel)
		renderers = append(renderers, internal_renderer.NewEventRenderer(publisher))
		g.Go(func() error { return publisher.Run(gCtx) })
		probes = append(probes, healthCheckApi.Probe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}

	summarizer := internal_summarizer.Noop()
	if cfg.OpenAIConfig.ApiKey != "" {
		summarizer = internal_summarizer.NewOpenAISummarizer(logger, cfg.OpenAIConfig.ApiKey, cfg.OpenAIConfig.Model, cfg.OpenAIConfig.BaseURL)
	}

	engine := internal_engine.New(logger,
		internal_engine.WithDevice(device),
		internal_engine.WithTransport(remote),
		internal_engine.WithExporter(remote, cfg.ExportOnFinalize),
		internal_engine.WithRenderer(internal_renderer.Multi(renderers...)),
		internal_engine.WithSummarizer(summarizer),
		internal_engine.WithRegistry(registry),
		internal_engine.WithSegmentDuration(cfg.SegmentDuration()),
		internal_engine.WithTimeoutMargin(cfg.TimeoutMargin()),
		internal_engine.WithTimeoutFloor(cfg.TimeoutFloor()),
		internal_engine.WithPollInterval(cfg.FinalizePoll()),
		internal_engine.WithUploadTimeout(cfg.RemoteTimeout()),
	)
	defer engine.Close()

	if cfg.RemoteConfig.WsURL != "" {
		listener := internal_transport.NewListener(logger, cfg.RemoteConfig.WsURL, engine)
		g.Go(func() error { return listener.Run(gCtx) })
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))
	recorder_routers.HealthCheckRoutes(cfg, router, logger, probes...)
	recorder_routers.RecordingApiRoute(cfg, router, logger, engine, registry, hub)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Infof("segscribe listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rapidaai/segscribe/pkg/utils"
	"github.com/spf13/viper"
)

type RemoteConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	WsURL     string `mapstructure:"ws_url"`
	TimeoutMs int    `mapstructure:"timeout_ms" validate:"required,min=1"`
}

type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel" validate:"required"`
}

type OpenAIConfig struct {
	ApiKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model" validate:"required"`
	BaseURL string `mapstructure:"base_url"`
}

type CaptureConfig struct {
	Command    string `mapstructure:"command"`
	SampleRate int    `mapstructure:"sample_rate" validate:"required,min=8000"`
	Channels   int    `mapstructure:"channels" validate:"required,min=1,max=2"`
}

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogPath  string `mapstructure:"log_path"`
	Env      string `mapstructure:"env"`

	SegmentDurationMs int    `mapstructure:"segment_duration_ms" validate:"required,min=1000,max=300000"`
	TimeoutMarginMs   int    `mapstructure:"timeout_margin_ms" validate:"min=0"`
	TimeoutFloorMs    int    `mapstructure:"timeout_floor_ms" validate:"required,min=1"`
	FinalizePollMs    int    `mapstructure:"finalize_poll_ms" validate:"required,min=10"`
	EnabledProviders  string `mapstructure:"enabled_providers"`
	ExportOnFinalize  bool   `mapstructure:"export_on_finalize"`

	RemoteConfig  RemoteConfig  `mapstructure:"remote" validate:"required"`
	RedisConfig   RedisConfig   `mapstructure:"redis" validate:"required"`
	OpenAIConfig  OpenAIConfig  `mapstructure:"openai" validate:"required"`
	CaptureConfig CaptureConfig `mapstructure:"capture" validate:"required"`
}

func (c *AppConfig) IsDevelopment() bool {
	return !utils.FromEnvironmentStr(c.Env).IsProduction()
}

func (c *AppConfig) SegmentDuration() time.Duration {
	return time.Duration(c.SegmentDurationMs) * time.Millisecond
}

func (c *AppConfig) TimeoutMargin() time.Duration {
	return time.Duration(c.TimeoutMarginMs) * time.Millisecond
}

func (c *AppConfig) TimeoutFloor() time.Duration {
	return time.Duration(c.TimeoutFloorMs) * time.Millisecond
}

func (c *AppConfig) FinalizePoll() time.Duration {
	return time.Duration(c.FinalizePollMs) * time.Millisecond
}

func (c *AppConfig) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteConfig.TimeoutMs) * time.Millisecond
}

func (c *AppConfig) Providers() []string {
	return utils.SplitList(c.EnabledProviders)
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil {
		log.Printf("Reading from env variables.")
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// keeping watch on https://github.com/spf13/viper/issues/188
	v.SetDefault("SERVICE_NAME", "segscribe")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("ENV", "development")

	v.SetDefault("SEGMENT_DURATION_MS", 10000)
	v.SetDefault("TIMEOUT_MARGIN_MS", 500)
	v.SetDefault("TIMEOUT_FLOOR_MS", 30000)
	v.SetDefault("FINALIZE_POLL_MS", 250)
	v.SetDefault("ENABLED_PROVIDERS", "vertex")
	v.SetDefault("EXPORT_ON_FINALIZE", false)

	v.SetDefault("REMOTE__BASE_URL", "http://localhost:8000")
	v.SetDefault("REMOTE__WS_URL", "")
	v.SetDefault("REMOTE__TIMEOUT_MS", 60000)

	v.SetDefault("REDIS__ADDR", "")
	v.SetDefault("REDIS__CHANNEL", "segscribe:events")

	v.SetDefault("OPENAI__API_KEY", "")
	v.SetDefault("OPENAI__MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI__BASE_URL", "")

	v.SetDefault("CAPTURE__COMMAND", "")
	v.SetDefault("CAPTURE__SAMPLE_RATE", 16000)
	v.SetDefault("CAPTURE__CHANNELS", 1)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}

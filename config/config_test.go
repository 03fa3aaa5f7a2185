// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("ENV_PATH", path)
}

func TestGetApplicationConfig_Defaults(t *testing.T) {
	writeEnv(t, "SERVICE_NAME=segscribe-test\n")

	v, err := InitConfig()
	require.NoError(t, err)
	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "segscribe-test", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.SegmentDuration())
	assert.Equal(t, 500*time.Millisecond, cfg.TimeoutMargin())
	assert.Equal(t, 30*time.Second, cfg.TimeoutFloor())
	assert.Equal(t, 250*time.Millisecond, cfg.FinalizePoll())
	assert.Equal(t, []string{"vertex"}, cfg.Providers())
	assert.True(t, cfg.IsDevelopment())
}

func TestGetApplicationConfig_NestedKeys(t *testing.T) {
	writeEnv(t, "REMOTE__BASE_URL=http://processor:8080\nREDIS__CHANNEL=rec\nENABLED_PROVIDERS=google,aws\nENV=production\n")

	v, err := InitConfig()
	require.NoError(t, err)
	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "http://processor:8080", cfg.RemoteConfig.BaseURL)
	assert.Equal(t, "rec", cfg.RedisConfig.Channel)
	assert.Equal(t, []string{"google", "aws"}, cfg.Providers())
	assert.False(t, cfg.IsDevelopment())
}

func TestGetApplicationConfig_RejectsShortSegments(t *testing.T) {
	writeEnv(t, "SEGMENT_DURATION_MS=200\n")

	v, err := InitConfig()
	require.NoError(t, err)
	_, err = GetApplicationConfig(v)
	assert.Error(t, err)
}

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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return logger
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestHTTPClient_Upload(t *testing.T) {
	var got uploadPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, segmentUploadPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"saved":   map[string]interface{}{"url": "/media/rec-1/0.wav", "mime": "audio/wav", "size": 44, "segment_id": "srv-0"},
			"results": map[string]string{"google": "hello", "vertex": ""},
		})
	}))
	defer server.Close()

	c := NewHTTPClient(newTestLogger(t), server.URL+"/", time.Second)
	res, err := c.Upload(context.Background(), internal_type.UploadRequest{
		SessionID:  "rec-1",
		Index:      0,
		LocalID:    "1700000000000",
		Duration:   10 * time.Second,
		Data:       []byte("RIFF"),
		CapturedAt: time.UnixMilli(1700000000123),
	})
	require.NoError(t, err)

	assert.Equal(t, "rec-1", got.RecordingID)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("RIFF")), got.AudioB64)
	assert.Equal(t, "audio/wav", got.Mime)
	assert.Equal(t, int64(10000), got.DurationMs)
	assert.Equal(t, "1700000000000", got.ID)
	assert.Equal(t, int64(1700000000123), got.Ts)

	assert.Equal(t, "srv-0", res.RemoteID)
	assert.Equal(t, "/media/rec-1/0.wav", res.Media.URL)
	assert.Equal(t, int64(44), res.Media.Size)
	assert.Equal(t, map[internal_type.ProviderKey]string{"google": "hello", "vertex": ""}, res.ProviderResults)
}

func TestHTTPClient_UploadRemoteIDAliases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "sid": "srv-alias"})
	}))
	defer server.Close()

	res, err := NewHTTPClient(newTestLogger(t), server.URL, time.Second).Upload(context.Background(), internal_type.UploadRequest{})
	require.NoError(t, err)
	assert.Equal(t, "srv-alias", res.RemoteID)
	assert.Nil(t, res.Media)
}

func TestHTTPClient_UploadFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]interface{}
	}{
		{"server error", http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "disk full"}},
		{"not ok", http.StatusOK, map[string]interface{}{"ok": false, "error": "bad audio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			_, err := NewHTTPClient(newTestLogger(t), server.URL, time.Second).Upload(context.Background(), internal_type.UploadRequest{})
			var procErr ProcessorError
			require.ErrorAs(t, err, &procErr)
			assert.Equal(t, tt.status, procErr.StatusCode)
			assert.Equal(t, tt.body["error"], procErr.Message)
		})
	}
}

func TestHTTPClient_UploadNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	_, err := NewHTTPClient(newTestLogger(t), server.URL, time.Second).Upload(context.Background(), internal_type.UploadRequest{})
	assert.Error(t, err)
}

func TestHTTPClient_ExportImmediateURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, exportFullPath, r.URL.Path)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "rec-1", body["recording_id"])
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "url": "/media/rec-1/full.wav"})
	}))
	defer server.Close()

	c := NewHTTPClient(newTestLogger(t), server.URL, time.Second)
	url, err := WaitExport(context.Background(), c, "rec-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "/media/rec-1/full.wav", url)
}

func TestHTTPClient_ExportPollsJob(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(exportFullPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "job_id": "job-7"})
	})
	mux.HandleFunc("/export_status/job-7", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writeJSON(w, http.StatusOK, map[string]interface{}{"status": "pending"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "done", "url": "/media/full.wav"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewHTTPClient(newTestLogger(t), server.URL, time.Second)
	url, err := WaitExport(context.Background(), c, "rec-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "/media/full.wav", url)
	assert.Equal(t, int32(3), polls.Load())
}

func TestHTTPClient_ExportJobError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(exportFullPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "job_id": "job-8"})
	})
	mux.HandleFunc("/export_status/job-8", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "error"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := WaitExport(context.Background(), NewHTTPClient(newTestLogger(t), server.URL, time.Second), "rec-1", time.Millisecond)
	assert.ErrorContains(t, err, "job-8")
}

func TestWaitExport_ContextEnds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(exportFullPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "job_id": "job-9"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WaitExport(ctx, NewHTTPClient(newTestLogger(t), server.URL, time.Second), "rec-1", time.Hour)
	assert.Error(t, err)
}

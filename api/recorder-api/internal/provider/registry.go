// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_provider

import (
	"fmt"
	"sync"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

type Provider struct {
	Key     internal_type.ProviderKey `json:"key"`
	Label   string                    `json:"label"`
	Enabled bool                      `json:"enabled"`
}

// known providers in display order
var catalog = []Provider{
	{Key: internal_type.ProviderGoogle, Label: "Google STT"},
	{Key: internal_type.ProviderVertex, Label: "Vertex AI"},
	{Key: internal_type.ProviderGemini, Label: "Gemini"},
	{Key: internal_type.ProviderAWS, Label: "AWS Transcribe"},
}

// Registry tracks which transcription providers are enabled. A session takes
// a snapshot at start, so toggling only affects the next recording.
type Registry struct {
	mu        sync.RWMutex
	logger    commons.Logger
	providers []Provider
}

func NewRegistry(logger commons.Logger, enabled []string) (*Registry, error) {
	r := &Registry{logger: logger, providers: make([]Provider, len(catalog))}
	copy(r.providers, catalog)
	for _, key := range enabled {
		if err := r.Set(internal_type.ProviderKey(key), true); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

func (r *Registry) Enabled() []internal_type.ProviderKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]internal_type.ProviderKey, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Enabled {
			out = append(out, p.Key)
		}
	}
	return out
}

func (r *Registry) Set(key internal_type.ProviderKey, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.providers {
		if r.providers[i].Key == key {
			r.providers[i].Enabled = enabled
			r.logger.Debugf("provider: %s enabled=%t", key, enabled)
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q", key)
}

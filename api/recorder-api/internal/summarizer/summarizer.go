// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_summarizer

import (
	"context"
	"strings"
	"sync"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
	"golang.org/x/sync/errgroup"
)

// Summarizer condenses one provider's full transcript.
type Summarizer interface {
	Summarize(ctx context.Context, provider internal_type.ProviderKey, text string) (string, error)
}

type noopSummarizer struct{}

// Noop returns a summarizer that produces nothing; SummarizeAll skips it entirely.
func Noop() Summarizer { return noopSummarizer{} }

func (noopSummarizer) Summarize(context.Context, internal_type.ProviderKey, string) (string, error) {
	return "", nil
}

// SummarizeAll runs one Summarize per provider with non-empty text. A failing
// provider is logged and left out of the result; the others still complete.
func SummarizeAll(ctx context.Context, logger commons.Logger, s Summarizer, fullText map[internal_type.ProviderKey]string) map[internal_type.ProviderKey]string {
	out := make(map[internal_type.ProviderKey]string, len(fullText))
	if s == nil {
		return out
	}
	if _, ok := s.(noopSummarizer); ok {
		return out
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for provider, text := range fullText {
		if strings.TrimSpace(text) == "" {
			continue
		}
		provider, text := provider, text
		g.Go(func() error {
			summary, err := s.Summarize(gCtx, provider, text)
			if err != nil {
				logger.Errorf("summarizer: %s failed: %v", provider, err)
				return nil
			}
			mu.Lock()
			out[provider] = summary
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

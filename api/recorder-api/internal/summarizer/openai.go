// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const summarizePrompt = "You summarize meeting transcripts. Reply with a short paragraph covering the main points and any decisions. Do not invent content."

var ErrEmptyCompletion = errors.New("summarizer: completion returned no choices")

type openAISummarizer struct {
	logger commons.Logger
	client openai.Client
	model  string
}

// NewOpenAISummarizer builds a chat-completion backed summarizer. baseURL may be
// empty to use the public endpoint.
func NewOpenAISummarizer(logger commons.Logger, apiKey, model, baseURL string) Summarizer {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAISummarizer{
		logger: logger,
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (o *openAISummarizer) Summarize(ctx context.Context, provider internal_type.ProviderKey, text string) (string, error) {
	o.logger.Debugf("summarizer: requesting summary for %s (%d chars)", provider, len(text))
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarizePrompt),
			openai.UserMessage(text),
		},
		Model: openai.ChatModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: chat completion for %s: %w", provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

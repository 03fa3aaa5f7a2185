// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "strings"

type ProviderKey string

const (
	ProviderGoogle ProviderKey = "google"
	ProviderVertex ProviderKey = "vertex"
	ProviderGemini ProviderKey = "gemini"
	ProviderAWS    ProviderKey = "aws"
)

func (p ProviderKey) String() string {
	return string(p)
}

// ProviderFromMessageType maps segment_transcript[_<provider>] to a provider.
// The bare type belongs to google.
func ProviderFromMessageType(msgType string) (ProviderKey, bool) {
	const prefix = "segment_transcript"
	if !strings.HasPrefix(msgType, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(msgType, prefix)
	if rest == "" {
		return ProviderGoogle, true
	}
	if !strings.HasPrefix(rest, "_") || len(rest) == 1 {
		return "", false
	}
	return ProviderKey(rest[1:]), true
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import "strings"

func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if IsEmpty(part) {
			continue
		}
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

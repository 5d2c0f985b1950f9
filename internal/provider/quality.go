package provider

import "strings"

// scoreResponse rates an answer on a 0 to 10 scale from surface signals:
// enough substance to be useful, some structure, not trailing off
// mid-sentence. It is a coarse ranking signal for mixed runs and context
// trailers, not a judgment of correctness.
func scoreResponse(response string) float64 {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return 0
	}

	score := 5.0

	switch length := len(trimmed); {
	case length < 40:
		score -= 2
	case length > 200:
		score += 1.5
	}

	if strings.Count(trimmed, "\n\n") >= 1 {
		score += 1
	}
	if strings.Contains(trimmed, "\n- ") || strings.Contains(trimmed, "\n* ") || strings.Contains(trimmed, "\n1.") {
		score += 1
	}

	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?', ')', '`':
	default:
		score -= 1
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score
}

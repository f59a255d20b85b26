// Package llm renders an optional narrative summary of a truth map. The
// summary is presentation only: it runs after every artifact is written and
// nothing downstream reads it back. Strict evidence mode restricts citations
// to anchor URLs already in the graph.
package llm

import (
	"context"
	"fmt"

	"github.com/plumbline/plumbline/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a summary of the truth map with strict evidence mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// TruthMap is the scoring artifact to summarize
	TruthMap *model.TruthMap

	// EvidenceURLs is the STRICT allowlist of URLs the LLM can cite.
	// The LLM cannot reference any URL not in this list.
	EvidenceURLs []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// CitedURLs are the URLs the LLM actually cited (for verification)
	CitedURLs []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

const systemPrompt = "You are a careful analyst summarizing an evidence-support report with strict adherence to evidence constraints."

// BuildPrompt constructs the default summarization prompt with strict
// evidence mode
func BuildPrompt(tm *model.TruthMap, evidenceURLs []string) string {
	prompt := fmt.Sprintf(`You are summarizing a claim scoring report. The scores describe how well claims are supported by recorded evidence - they NEVER assert truth or correctness.

CRITICAL RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. DO NOT infer, speculate, or cite external sources beyond this list.
3. If evidence is insufficient or missing, state that explicitly.
4. Focus on SUPPORT QUALITY and POLLUTION SIGNALS, not truth. Use phrases like:
   - "The claim is supported by X domains..."
   - "Evidence shows template repetition across..."
   - "Proof integrity for this window is low because..."
5. Never say "this is true" or "this is false" - only describe evidence.

Report Summary:
- Claims scored: %d
- Proof integrity (window): %.2f
- Falsification culture: %.2f
- Quadrants: legit=%d, benign_noise=%d, likely_manipulation=%d, weaponized_truth=%d

Highest manipulation likelihood claims:
`, joinURLs(evidenceURLs), len(tm.Claims), tm.Proof.PIS, tm.Falsification,
		tm.Counts[model.QuadrantLegitPattern], tm.Counts[model.QuadrantBenignNoise],
		tm.Counts[model.QuadrantLikelyManipulation], tm.Counts[model.QuadrantWeaponizedTruth])

	for i, c := range topByML(tm.Claims, 3) {
		prompt += fmt.Sprintf("%d. term=%q CS=%.2f ML=%.2f quadrant=%s\n", i+1, c.Term, c.CS, c.ML, c.Quadrant)
	}

	prompt += "\nProvide a 3-4 sentence summary focusing on evidence quality and pollution, not truth."
	return prompt
}

func topByML(claims []model.ClaimScore, n int) []model.ClaimScore {
	out := make([]model.ClaimScore, len(claims))
	copy(out, claims)
	// Insertion sort keeps ties in claim order; n is tiny
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ML > out[j-1].ML; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No evidence URLs available)"
	}
	result := ""
	for i, url := range urls {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			result += fmt.Sprintf("\n... and %d more URLs", len(urls)-20)
			break
		}
		result += fmt.Sprintf("\n- %s", url)
	}
	return result
}

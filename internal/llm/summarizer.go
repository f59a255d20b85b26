package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/plumbline/plumbline/internal/model"
)

var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// Summarize runs one summarization pass: builds the allowlist from the
// graph's anchors and asks the provider for a narrative. A nil provider
// returns (nil, nil).
func Summarize(ctx context.Context, provider Provider, tm *model.TruthMap, g *model.Graph) (*SummarizeResponse, error) {
	if provider == nil {
		return nil, nil
	}
	if tm == nil {
		return nil, fmt.Errorf("nil truth map")
	}

	return provider.Summarize(ctx, SummarizeRequest{
		TruthMap:     tm,
		EvidenceURLs: AllowedURLs(g),
	})
}

// AllowedURLs collects the citation allowlist: every distinct anchor URL in
// the graph, in sorted anchor order.
func AllowedURLs(g *model.Graph) []string {
	if g == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, anchor := range g.AnchorList() {
		if anchor.URL == "" || seen[anchor.URL] {
			continue
		}
		seen[anchor.URL] = true
		out = append(out, anchor.URL)
	}
	return out
}

// checkCitations rejects any cited URL outside the allowlist
func checkCitations(cited, allowed []string) error {
	allowedSet := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		allowedSet[u] = true
	}
	for _, u := range cited {
		if !allowedSet[u] {
			return fmt.Errorf("citation leak: LLM cited disallowed URL: %s", u)
		}
	}
	return nil
}

// extractURLs extracts all URLs from text
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, url := range matches {
		url = strings.TrimRight(url, ".,;:!?")
		if !seen[url] {
			seen[url] = true
			unique = append(unique, url)
		}
	}
	return unique
}

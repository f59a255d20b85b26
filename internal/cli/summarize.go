package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	summarizeProvider string
	summarizeModel    string
	summarizeTimeout  time.Duration
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate an LLM narrative summary of the current truth map",
	Long: `Summarize scores the current ledger state and asks the configured LLM
provider for a short narrative. The summary is presentation only: it never
affects any score, and strict evidence mode rejects responses that cite
URLs outside the graph's anchors.

Example:
  plumbline summarize --provider openai --model gpt-4o-mini
  plumbline summarize --provider ollama --model llama3.1:8b`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&summarizeProvider, "provider", "openai", "LLM provider (openai, ollama)")
	summarizeCmd.Flags().StringVar(&summarizeModel, "model", "", "model name (provider default if empty)")
	summarizeCmd.Flags().DurationVar(&summarizeTimeout, "timeout", 2*time.Minute, "overall summarize timeout")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	cfg.LLM.Provider = summarizeProvider
	cfg.LLM.Model = summarizeModel
	cfg.LLM.StrictEvidence = true

	switch summarizeProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	runner, err := newRunnerFrom(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
	defer cancel()

	resp, err := runner.Summarize(ctx, now)
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	if resp == nil {
		fmt.Println("No LLM provider configured; nothing to summarize.")
		return nil
	}

	fmt.Printf("%s\n", resp.Summary)
	if verbose {
		fmt.Fprintf(os.Stderr, "\nmodel=%s tokens=%d cited=%d\n", resp.Model, resp.TokensUsed, len(resp.CitedURLs))
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plumbline/plumbline/internal/model"
)

// truthmapCmd represents the truthmap command
var truthmapCmd = &cobra.Command{
	Use:   "truthmap",
	Short: "Score every claim and print the truth-contamination map",
	Long: `Truthmap compiles the graph, computes proof integrity and the
template/coordination signals, scores every claim on the coherence and
manipulation axes and classifies it into a quadrant.

Scores describe evidence support and reuse patterns, never truth.

Example:
  plumbline truthmap
  plumbline truthmap --as-of 2026-07-01T00:00:00Z`,
	RunE: runTruthmap,
}

func init() {
	rootCmd.AddCommand(truthmapCmd)
}

func runTruthmap(cmd *cobra.Command, args []string) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	_, tm, err := runner.Snapshot(now)
	if err != nil {
		return err
	}

	printTruthMap(tm)
	return nil
}

func printTruthMap(tm *model.TruthMap) {
	if tm.Error != "" {
		fmt.Printf("Truth map: %s\n", tm.Error)
		return
	}

	fmt.Printf("Truth map generated %s (run %s)\n", tm.GeneratedAt.Format("2006-01-02 15:04:05 MST"), tm.RunID)
	fmt.Printf("  proof integrity:       %.3f (entropy=%.2f dup=%.2f primary=%.2f, %d anchors / %d runs)\n",
		tm.Proof.PIS, tm.Proof.DomainEntropyNorm, tm.Proof.DupRate, tm.Proof.PrimaryRatio,
		tm.Proof.AnchorCount, tm.Proof.WindowRuns)
	fmt.Printf("  falsification culture: %.3f\n", tm.Falsification)
	if tm.RegimeShift {
		fmt.Printf("  regime shift active: manipulation scores carry the configured boost\n")
	}

	fmt.Printf("\nQuadrants:\n")
	for _, q := range []model.Quadrant{
		model.QuadrantLegitPattern, model.QuadrantWeaponizedTruth,
		model.QuadrantLikelyManipulation, model.QuadrantBenignNoise,
	} {
		fmt.Printf("  %-20s %d\n", q, tm.Counts[q])
	}

	fmt.Printf("\nClaims:\n")
	for _, c := range tm.Claims {
		fmt.Printf("  %s  CS=%.2f ML=%.2f  %-20s term=%s\n", c.ClaimID, c.CS, c.ML, c.Quadrant, c.Term)
	}

	fmt.Printf("\n%s\n", tm.Disclaimer)
}

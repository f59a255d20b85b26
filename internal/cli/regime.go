package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// regimeCmd represents the regime command
var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Detect regime shifts in the system's own health metrics",
	Long: `Regime runs z-score anomaly detection over the rolling window of SIG
snapshots and prints the confidence bands for each tracked metric.

A shift requires at least one flagged metric AND a sustained composite
mean shift or a flagged stabilization half-life; a single noisy spike is
not a regime shift.`,
	RunE: runRegime,
}

func init() {
	rootCmd.AddCommand(regimeCmd)
}

func runRegime(cmd *cobra.Command, args []string) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	report, bands, err := runner.Regime(now)
	if err != nil {
		return err
	}

	if report.Error != "" {
		fmt.Printf("Regime detection: %s\n", report.Error)
	} else {
		fmt.Printf("Regime window: %d snapshots (of %d recorded)\n", report.Window, report.Snapshots)
		if len(report.Flags) == 0 {
			fmt.Printf("No metrics outside their operating band.\n")
		}
		for _, f := range report.Flags {
			fmt.Printf("  FLAG %-24s latest=%.3f mean=%.3f std=%.3f z=%.2f\n",
				f.Metric, f.Latest, f.Mean, f.Std, f.ZScore)
		}
		fmt.Printf("Composite mean shift: %.2f sigma (threshold met: %v)\n", report.MeanShiftSigma, report.MeanShift)
		if report.Shift {
			fmt.Printf("\nREGIME SHIFT: recalibrate before trusting ROI gains fitted under the old regime.\n")
		}
	}

	if bands.Error == "" {
		fmt.Printf("\nConfidence bands (k=%.2f):\n", bands.K)
		for _, b := range bands.Bands {
			fmt.Printf("  %-24s [%.3f, %.3f] (mean=%.3f)\n", b.Metric, b.Lower, b.Upper, b.Mean)
		}
	}
	return nil
}

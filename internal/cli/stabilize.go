package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plumbline/plumbline/internal/model"
)

// stabilizeCmd represents the stabilize command
var stabilizeCmd = &cobra.Command{
	Use:   "stabilize",
	Short: "Analyze how claim scores settle across recorded runs",
	Long: `Stabilize joins recorded truth-map snapshots into per-claim series and
measures time-to-threshold, variance half-life, quadrant flip rate and a
recommended forecast-horizon class per claim.

Requires the history index: a single snapshot has no dynamics to measure.`,
	RunE: runStabilize,
}

func init() {
	rootCmd.AddCommand(stabilizeCmd)
}

func runStabilize(cmd *cobra.Command, args []string) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	report, path, err := runner.Stabilize(now)
	if err != nil {
		return err
	}
	if report.Error != "" {
		fmt.Printf("Stabilization: %s\n", report.Error)
		return nil
	}

	fmt.Printf("Stabilization (theta=%.2f sustain=%d window=%d)\n", report.Theta, report.Sustain, report.Window)
	for _, c := range report.Claims {
		fmt.Printf("  %s  ttt=%s  half-life=%s  flips=%.2f  horizon=%s\n",
			c.ClaimID, days(c.TimeToThresholdDays), days(c.HalfLifeDays), c.FlipRate, c.Horizon)
	}
	fmt.Printf("\nArtifact: %s\n", path)
	return nil
}

// days renders a day count, with the sentinel shown as not reached
func days(v float64) string {
	if v == model.SentinelNotReached {
		return "not-reached"
	}
	return fmt.Sprintf("%.1fd", v)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var auditTimeout time.Duration

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check whether anchor URLs still resolve",
	Long: `Audit HEAD-checks every anchor URL in the graph, respecting robots.txt
and rate limits, and reports dead, stale and redirected anchors.

Audit results never feed scoring. Whether an anchor resolves today says
nothing about what it supported when it was appended to the ledger.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", 10*time.Minute, "overall audit timeout")
}

func runAudit(cmd *cobra.Command, args []string) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	report, path, err := runner.Audit(ctx, now)
	if err != nil {
		return err
	}
	if report.Error != "" {
		fmt.Printf("Audit: %s\n", report.Error)
		return nil
	}

	fmt.Printf("Audited %d anchors: %d accessible, %d dead\n",
		report.Checked, report.Accessible, report.Dead)
	for _, r := range report.Results {
		switch {
		case r.RobotsDenied:
			fmt.Printf("  ROBOTS   %s  %s\n", r.AnchorID, r.URL)
		case r.IsDead:
			fmt.Printf("  DEAD     %s  %s (%d)\n", r.AnchorID, r.URL, r.StatusCode)
		case r.IsVeryStale:
			fmt.Printf("  STALE-3Y %s  %s\n", r.AnchorID, r.URL)
		case r.RedirectURL != "":
			fmt.Printf("  MOVED    %s  %s -> %s\n", r.AnchorID, r.URL, r.RedirectURL)
		}
	}

	fmt.Printf("\nArtifact: %s\n", path)
	return nil
}

// Package regime flags when the system's own health metrics leave their
// recent operating band, signalling that recalibration is required.
package regime

import (
	"fmt"
	"math"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

// Detector runs z-score anomaly detection over rolling SIG windows
type Detector struct {
	weights model.Weights
	window  int
}

// NewDetector creates a detector with the given window size
func NewDetector(weights model.Weights, window int) *Detector {
	if window < 2 {
		window = 2
	}
	return &Detector{weights: weights, window: window}
}

// MinSnapshots is the historical floor below which detection refuses to run
// and returns an explicit insufficient-data error instead of a false negative.
func (d *Detector) MinSnapshots() int {
	if d.window > 10 {
		return d.window
	}
	return 10
}

// Detect evaluates the latest snapshot against the rolling window.
// Regime shift = at least one z-flag AND (composite mean shift >= the
// configured sigma OR the half-life metric itself flagged). A single noisy
// metric spike is insufficient.
func (d *Detector) Detect(snapshots []model.SIGSnapshot, now time.Time) *model.RegimeReport {
	report := &model.RegimeReport{
		GeneratedAt: now,
		Window:      d.window,
		Snapshots:   len(snapshots),
	}

	if len(snapshots) < d.MinSnapshots() {
		report.Error = fmt.Sprintf("insufficient history: need at least %d snapshots, have %d",
			d.MinSnapshots(), len(snapshots))
		return report
	}

	window := snapshots[len(snapshots)-d.window:]

	halfLifeFlagged := false
	for _, metric := range model.TrackedMetrics {
		values := metricValues(window, metric)
		mean, std := meanStd(values)
		latest := values[len(values)-1]

		z := 0.0
		if std > 0 {
			z = (latest - mean) / std
		}
		if math.Abs(z) > d.weights.ZThreshold {
			report.Flags = append(report.Flags, model.MetricFlag{
				Metric: metric,
				Latest: latest,
				Mean:   mean,
				Std:    std,
				ZScore: z,
			})
			if metric == model.MetricHalfLife {
				halfLifeFlagged = true
			}
		}
	}

	report.MeanShiftSigma, report.MeanShift = d.meanShift(window)
	report.Shift = len(report.Flags) > 0 && (report.MeanShift || halfLifeFlagged)

	return report
}

// Bands computes the confidence-band artifact over the same window
func (d *Detector) Bands(snapshots []model.SIGSnapshot, now time.Time) *model.ConfidenceReport {
	report := &model.ConfidenceReport{
		GeneratedAt: now,
		Window:      d.window,
		K:           d.weights.BandK,
	}
	if len(snapshots) < 2 {
		report.Error = "insufficient history: need at least 2 snapshots"
		return report
	}

	window := snapshots
	if len(window) > d.window {
		window = window[len(window)-d.window:]
	}

	for _, metric := range model.TrackedMetrics {
		mean, std := meanStd(metricValues(window, metric))
		report.Bands = append(report.Bands, model.ConfidenceBand{
			Metric: metric,
			Mean:   mean,
			Std:    std,
			Lower:  mean - d.weights.BandK*std,
			Upper:  mean + d.weights.BandK*std,
		})
	}
	return report
}

// meanShift splits the window in half and measures how far the second-half
// composite mean moved from the first half, in units of full-window std.
func (d *Detector) meanShift(window []model.SIGSnapshot) (sigma float64, shifted bool) {
	values := metricValues(window, model.MetricComposite)
	half := len(values) / 2
	if half < 1 {
		return 0, false
	}

	firstMean, _ := meanStd(values[:half])
	secondMean, _ := meanStd(values[half:])
	_, fullStd := meanStd(values)

	if fullStd == 0 {
		return 0, false
	}
	sigma = math.Abs(secondMean-firstMean) / fullStd
	return sigma, sigma >= d.weights.MeanShiftSigma
}

func metricValues(window []model.SIGSnapshot, metric string) []float64 {
	out := make([]float64, len(window))
	for i, s := range window {
		switch metric {
		case model.MetricComposite:
			out[i] = s.Composite
		case model.MetricCalibrationError:
			out[i] = s.CalibrationError
		case model.MetricBrier:
			out[i] = s.Brier
		case model.MetricHalfLife:
			out[i] = s.StabilizationHalfLife
		}
	}
	return out
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

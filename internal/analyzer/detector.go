package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rustcentral/behavior-api/internal/config"
	"github.com/rustcentral/behavior-api/internal/models"
)

// minStdDevForZScore guards the z-score division against a near-zero
// standard deviation.
const minStdDevForZScore = 0.01

// headshotRatioThreshold is the fixed bar for the headshot detector.
const headshotRatioThreshold = 0.5

// RunDetection evaluates every updated feature vector and returns the
// detections that fired. Players below the sample-count floor are skipped
// entirely, so the headshot rule inherits the same floor as the z-score
// rule. Both rules may fire for the same player; each produces its own
// record. All boundary comparisons are strict.
func RunDetection(cfg *config.Config, owner string, updates map[string]*models.PlayerFeatures) []*models.Detection {
	var detections []*models.Detection

	for playerID, f := range updates {
		if f.AccuracySampleCount < int64(cfg.MinSamplesForDetection) {
			continue
		}

		if f.AccuracyStdDev > minStdDevForZScore {
			z := (f.Accuracy - f.AccuracyMean) / f.AccuracyStdDev
			if math.Abs(z) > cfg.ZScoreThreshold {
				detections = append(detections, &models.Detection{
					Owner:        owner,
					PlayerID:     playerID,
					DetectorType: models.DetectorZScoreAccuracy,
					Score:        math.Abs(z),
					Threshold:    cfg.ZScoreThreshold,
					Features: map[string]any{
						"accuracy": f.Accuracy,
						"mean":     f.AccuracyMean,
						"stdDev":   f.AccuracyStdDev,
						"zScore":   z,
					},
					Explanation: fmt.Sprintf("Accuracy z-score %.2f exceeds threshold %s", z, formatThreshold(cfg.ZScoreThreshold)),
				})
			}
		}

		if f.HeadshotRatio > headshotRatioThreshold {
			detections = append(detections, &models.Detection{
				Owner:        owner,
				PlayerID:     playerID,
				DetectorType: models.DetectorThresholdHeadshot,
				Score:        f.HeadshotRatio * 100,
				Threshold:    50.0,
				Features: map[string]any{
					"headshotRatio":  f.HeadshotRatio,
					"totalHeadshots": f.TotalHeadshots,
					"totalHits":      f.TotalHits,
				},
				Explanation: fmt.Sprintf("Headshot ratio %.1f%% exceeds 50%% threshold", f.HeadshotRatio*100),
			})
		}
	}

	return detections
}

// formatThreshold prints a configured threshold without truncation:
// shortest exact decimal, keeping a trailing ".0" on whole values so the
// default reads "3.0", not "3".
func formatThreshold(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Package analyzer holds the behavior-analysis core: per-player feature
// extraction with numerically stable online statistics, anomaly detection
// over the updated feature vectors, and the per-request pipeline that
// sequences reads and writes across the three collections.
package analyzer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rustcentral/behavior-api/internal/config"
	"github.com/rustcentral/behavior-api/internal/models"
)

// ExtractFeatures merges one player's new events into their prior feature
// state and tags the events worth persisting. prior may be nil for a player
// never seen before. Events are processed in arrival order.
//
// Tagging happens by marking the events in place (Interesting /
// InterestingReason); the pipeline assembles the final retained list in
// input order from those marks.
func ExtractFeatures(cfg *config.Config, events []*models.TelemetryEvent, prior *models.PlayerFeatures) *models.PlayerFeatures {
	if prior == nil {
		prior = &models.PlayerFeatures{}
	}

	var (
		shotsFired float64
		shotsHit   float64
		headshots  float64
		kills      int64
	)

	for _, evt := range events {
		if evt.ActionType.AlwaysStore() {
			evt.Interesting = true
			if evt.ActionType == models.ActionPlayerKilled {
				kills++
			}
			// Kill and session events carry no shot data.
			continue
		}

		switch evt.ActionType {
		case models.ActionWeaponFired:
			// Shots are counted by the shots field, not by event count.
			shots := evt.Metadata.Float("shots", 1)
			hits := evt.Metadata.Float("hits", 0)
			hs := evt.Metadata.Float("headshots", 0)

			shotsFired += shots
			shotsHit += hits
			headshots += hs

			if shots >= float64(cfg.MinShotsForInteresting) {
				accuracy := 0.0
				if shots > 0 {
					accuracy = hits / shots
				}
				hsRatio := hs / math.Max(hits, 1)

				if accuracy >= cfg.AccuracyInterestingThreshold {
					evt.Interesting = true
					evt.InterestingReason = fmt.Sprintf("high_accuracy:%.2f", accuracy)
				} else if hsRatio >= cfg.HeadshotInterestingThreshold {
					evt.Interesting = true
					evt.InterestingReason = fmt.Sprintf("high_headshot:%.2f", hsRatio)
				}
			}

		case models.ActionPlayerAttack:
			if damage := evt.Metadata.Float("damage", 0); damage > cfg.HighDamageThreshold {
				evt.Interesting = true
				evt.InterestingReason = "high_damage:" + strconv.FormatFloat(damage, 'f', -1, 64)
			}
		}

		// Ticks, inputs, looting and unknown types update nothing and are
		// not stored.
	}

	totalShots := float64(prior.TotalShots) + shotsFired
	totalHits := float64(prior.TotalHits) + shotsHit

	next := &models.PlayerFeatures{
		Owner:          prior.Owner,
		PlayerID:       prior.PlayerID,
		TotalShots:     int64(totalShots),
		TotalHits:      int64(totalHits),
		TotalHeadshots: prior.TotalHeadshots + int64(headshots),
		TotalKills:     prior.TotalKills + kills,
	}

	if totalShots > 0 {
		next.Accuracy = totalHits / totalShots
		next.HeadshotRatio = float64(next.TotalHeadshots) / math.Max(totalHits, 1)
	}

	if shotsFired > 0 {
		// One Welford sample per batch, not per event: detection should
		// react to sustained per-session behavior, not single-event noise.
		sessionAccuracy := shotsHit / shotsFired

		n := float64(prior.AccuracySampleCount) + 1
		delta := sessionAccuracy - prior.AccuracyMean
		mean := prior.AccuracyMean + delta/n
		delta2 := sessionAccuracy - mean
		m2 := prior.AccuracyM2 + delta*delta2

		next.AccuracySampleCount = int64(n)
		next.AccuracyMean = mean
		next.AccuracyM2 = m2
		if n > 1 {
			next.AccuracyStdDev = math.Sqrt(m2 / n)
		}
	} else {
		next.AccuracySampleCount = prior.AccuracySampleCount
		next.AccuracyMean = prior.AccuracyMean
		next.AccuracyM2 = prior.AccuracyM2
		next.AccuracyStdDev = prior.AccuracyStdDev
	}

	return next
}

// RiskScore derives the profile risk score from the updated features,
// clamped to [0, 100].
func RiskScore(cfg *config.Config, f *models.PlayerFeatures) float64 {
	risk := 0.0
	if f.Accuracy > cfg.AccuracyRiskThreshold {
		risk += (f.Accuracy - cfg.AccuracyRiskThreshold) * 100
	}
	if f.HeadshotRatio > cfg.HeadshotRiskThreshold {
		risk += (f.HeadshotRatio - cfg.HeadshotRiskThreshold) * 100
	}
	return math.Min(math.Max(risk, 0), 100)
}
